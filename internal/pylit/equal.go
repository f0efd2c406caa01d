package pylit

import (
	"math"
	"math/big"
	"sort"
	"strconv"
)

// Equal reports whether a and b are the same literal. Dicts and sets compare
// without regard to order; ints compare equal regardless of representation.
func Equal(a, b Value) bool {
	a, b = normalizeInt(a), normalizeInt(b)
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case int64:
		y, ok := b.(int64)
		return ok && x == y
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || math.IsNaN(x) && math.IsNaN(y))
	case complex128:
		y, ok := b.(complex128)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && string(x) == string(y)
	case List:
		y, ok := b.(List)
		return ok && equalSeq(x, y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSeq(x, y)
	case Set:
		y, ok := b.(Set)
		if !ok || len(x) != len(y) {
			return false
		}
		return equalSeq(sortedValues(x), sortedValues(y))
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, it := range x.Items() {
			other, found := y.Get(it.Key)
			if !found || !Equal(it.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ToJSON converts v into plain Go values for encoding/json and yaml.v3.
// Non-string dict keys and complex numbers are rendered with Repr.
func ToJSON(v Value) any {
	switch x := v.(type) {
	case *big.Int:
		return jsonNumber(x.String())
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return Repr(x)
		}
		return x
	case complex128:
		return formatComplex(x)
	case Bytes:
		return string(x)
	case List:
		return toJSONSeq(x)
	case Tuple:
		return toJSONSeq(x)
	case Set:
		return toJSONSeq(sortedValues(x))
	case *Dict:
		m := make(map[string]any, x.Len())
		for _, it := range x.Items() {
			key, ok := it.Key.(string)
			if !ok {
				key = Repr(it.Key)
			}
			m[key] = ToJSON(it.Value)
		}
		return m
	default:
		return v
	}
}

// jsonNumber mirrors encoding/json.Number without importing encoding/json
// into the codec.
type jsonNumber string

// MarshalJSON emits the number unquoted.
func (n jsonNumber) MarshalJSON() ([]byte, error) {
	return []byte(n), nil
}

// MarshalYAML emits the number as an int scalar.
func (n jsonNumber) MarshalYAML() (any, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, nil
	}
	return string(n), nil
}

func toJSONSeq(items []Value) []any {
	out := make([]any, 0, len(items))
	for _, v := range items {
		out = append(out, ToJSON(v))
	}
	return out
}

// FromJSON converts decoded JSON (as produced by encoding/json or gjson) into
// a Value. Objects become dicts with sorted keys; integral numbers become ints.
func FromJSON(v any) Value {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		out := make(List, 0, len(x))
		for _, item := range x {
			out = append(out, FromJSON(item))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := NewDict()
		for _, k := range keys {
			// string keys are always hashable
			_ = d.Set(k, FromJSON(x[k]))
		}
		return d
	default:
		return v
	}
}
