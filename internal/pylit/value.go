// Package pylit reads and writes Python literal expressions.
//
// Only literal syntax is understood: strings, bytes, numbers, booleans, None,
// lists, tuples, sets and dicts. Names, calls and operators other than unary
// sign and complex addition are rejected, so parsing never evaluates code.
package pylit

import (
	"fmt"
	"math/big"
)

// Value is a parsed literal. The dynamic type is one of:
// nil (None), bool, int64, *big.Int, float64, complex128, string, Bytes,
// List, Tuple, Set or *Dict.
type Value = any

// Bytes is a bytes literal (b'...').
type Bytes []byte

// List is a list literal.
type List []Value

// Tuple is a tuple literal.
type Tuple []Value

// Set is a set literal. Members keep their source order.
type Set []Value

// Item is one key/value pair of a Dict.
type Item struct {
	Key   Value
	Value Value
}

// Dict is an insertion-ordered dict literal.
type Dict struct {
	items []Item
	index map[string]int
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}

// Items returns the entries in insertion order. The slice must not be modified.
func (d *Dict) Items() []Item {
	if d == nil {
		return nil
	}
	return d.items
}

// Set stores value under key. An existing key keeps its position and gets the
// new value. Unhashable keys are rejected.
func (d *Dict) Set(key, value Value) error {
	if !Hashable(key) {
		return fmt.Errorf("unhashable type: '%s'", TypeName(key))
	}
	k := hashKey(key)
	if i, ok := d.index[k]; ok {
		d.items[i].Value = value
		return nil
	}
	d.index[k] = len(d.items)
	d.items = append(d.items, Item{Key: key, Value: value})
	return nil
}

// Get looks up key.
func (d *Dict) Get(key Value) (Value, bool) {
	if d == nil || !Hashable(key) {
		return nil, false
	}
	i, ok := d.index[hashKey(key)]
	if !ok {
		return nil, false
	}
	return d.items[i].Value, true
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	keys := make([]Value, 0, d.Len())
	for _, it := range d.Items() {
		keys = append(keys, it.Key)
	}
	return keys
}

// hashKey builds the index key for a hashable value. Ints that fit in int64
// and their *big.Int form collapse to the same key.
func hashKey(v Value) string {
	return TypeName(v) + ":" + Repr(normalizeInt(v))
}

// Hashable reports whether v may be used as a dict key or set member.
func Hashable(v Value) bool {
	switch x := v.(type) {
	case List, *Dict, Set:
		return false
	case Tuple:
		for _, e := range x {
			if !Hashable(e) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// TypeName returns the Python type name of v.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64, *big.Int:
		return "int"
	case float64:
		return "float"
	case complex128:
		return "complex"
	case string:
		return "str"
	case Bytes:
		return "bytes"
	case List:
		return "list"
	case Tuple:
		return "tuple"
	case Set:
		return "set"
	case *Dict:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// normalizeInt turns a *big.Int that fits in int64 into an int64.
func normalizeInt(v Value) Value {
	if b, ok := v.(*big.Int); ok && b.IsInt64() {
		return b.Int64()
	}
	return v
}
