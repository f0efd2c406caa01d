package pylit

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Width is the line width Format aims for.
const Width = 80

// Repr renders v on one line the way Python's repr() does. Dicts keep their
// insertion order. Infinite floats render as 1e999 so the result stays a
// literal.
func Repr(v Value) string {
	var b strings.Builder
	writeRepr(&b, v, false)
	return b.String()
}

// Format renders v the way pprint.pformat does: one line when it fits in
// Width, otherwise one container element per line with hanging indents.
// Dict keys and set members are sorted.
func Format(v Value) string {
	var b strings.Builder
	f := &formatter{w: &b, width: Width}
	f.format(v, 0, 0)
	return b.String()
}

// Fprint writes Format(v) followed by a newline.
func Fprint(w io.Writer, v Value) error {
	_, err := io.WriteString(w, Format(v)+"\n")
	return err
}

// Quote renders s as a str literal delimited by q (' or ").
func Quote(s string, q byte) string {
	var b strings.Builder
	writeString(&b, s, q)
	return b.String()
}

type formatter struct {
	w     *strings.Builder
	width int
}

func (f *formatter) write(s string) {
	f.w.WriteString(s)
}

func (f *formatter) format(v Value, indent, allowance int) {
	rep := sortedRepr(v)
	if runeLen(rep) <= f.width-indent-allowance {
		f.write(rep)
		return
	}
	switch x := v.(type) {
	case *Dict:
		if x.Len() == 0 {
			break
		}
		f.write("{")
		f.formatDictItems(sortedItems(x), indent, allowance+1)
		f.write("}")
		return
	case List:
		if len(x) == 0 {
			break
		}
		f.write("[")
		f.formatItems(x, indent, allowance+1)
		f.write("]")
		return
	case Tuple:
		if len(x) == 0 {
			break
		}
		end := ")"
		if len(x) == 1 {
			end = ",)"
		}
		f.write("(")
		f.formatItems(x, indent, allowance+len(end))
		f.write(end)
		return
	case Set:
		if len(x) == 0 {
			break
		}
		f.write("{")
		f.formatItems(sortedValues(x), indent, allowance+1)
		f.write("}")
		return
	}
	f.write(rep)
}

func (f *formatter) formatDictItems(items []Item, indent, allowance int) {
	indent++
	delim := ",\n" + strings.Repeat(" ", indent)
	last := len(items) - 1
	for i, it := range items {
		rep := sortedRepr(it.Key)
		f.write(rep)
		f.write(": ")
		a := 1
		if i == last {
			a = allowance
		}
		f.format(it.Value, indent+runeLen(rep)+2, a)
		if i != last {
			f.write(delim)
		}
	}
}

func (f *formatter) formatItems(items []Value, indent, allowance int) {
	indent++
	delim := ",\n" + strings.Repeat(" ", indent)
	last := len(items) - 1
	for i, v := range items {
		if i > 0 {
			f.write(delim)
		}
		a := 1
		if i == last {
			a = allowance
		}
		f.format(v, indent, a)
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func sortedRepr(v Value) string {
	var b strings.Builder
	writeRepr(&b, v, true)
	return b.String()
}

func writeRepr(b *strings.Builder, v Value, sorted bool) {
	switch x := v.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if x {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case *big.Int:
		b.WriteString(x.String())
	case float64:
		b.WriteString(formatFloat(x))
	case complex128:
		b.WriteString(formatComplex(x))
	case string:
		q := byte('\'')
		if strings.ContainsRune(x, '\'') && !strings.ContainsRune(x, '"') {
			q = '"'
		}
		writeString(b, x, q)
	case Bytes:
		writeBytes(b, x)
	case List:
		b.WriteByte('[')
		writeSeq(b, x, sorted)
		b.WriteByte(']')
	case Tuple:
		b.WriteByte('(')
		writeSeq(b, x, sorted)
		if len(x) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case Set:
		if len(x) == 0 {
			b.WriteString("set()")
			return
		}
		members := []Value(x)
		if sorted {
			members = sortedValues(x)
		}
		b.WriteByte('{')
		writeSeq(b, members, sorted)
		b.WriteByte('}')
	case *Dict:
		items := x.Items()
		if sorted {
			items = sortedItems(x)
		}
		b.WriteByte('{')
		for i, it := range items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, it.Key, sorted)
			b.WriteString(": ")
			writeRepr(b, it.Value, sorted)
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "<%T>", v)
	}
}

func writeSeq(b *strings.Builder, items []Value, sorted bool) {
	for i, v := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, v, sorted)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "1e999"
	case math.IsInf(f, -1):
		return "-1e999"
	case math.IsNaN(f):
		return "nan"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func formatComplex(c complex128) string {
	re, im := real(c), imag(c)
	imStr := strings.TrimSuffix(formatFloat(im), ".0") + "j"
	if re == 0 && !math.Signbit(re) {
		return imStr
	}
	sign := "+"
	if im < 0 || (im == 0 && math.Signbit(im)) {
		sign = "-"
		imStr = strings.TrimPrefix(imStr, "-")
	}
	return "(" + strings.TrimSuffix(formatFloat(re), ".0") + sign + imStr + ")"
}

func writeString(b *strings.Builder, s string, q byte) {
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < ' ' || r == 0x7f:
			fmt.Fprintf(b, `\x%02x`, r)
		case r < 0x7f:
			b.WriteRune(r)
		case unicode.IsPrint(r):
			b.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(b, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			fmt.Fprintf(b, `\U%08x`, r)
		}
	}
	b.WriteByte(q)
}

func writeBytes(b *strings.Builder, data Bytes) {
	q := byte('\'')
	if strings.ContainsRune(string(data), '\'') && !strings.ContainsRune(string(data), '"') {
		q = '"'
	}
	b.WriteString("b")
	b.WriteByte(q)
	for _, c := range data {
		switch {
		case c == q || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c < ' ' || c >= 0x7f:
			fmt.Fprintf(b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
}

func sortedItems(d *Dict) []Item {
	items := append([]Item(nil), d.Items()...)
	sort.SliceStable(items, func(i, j int) bool {
		return compare(items[i].Key, items[j].Key) < 0
	})
	return items
}

func sortedValues(vs []Value) []Value {
	out := append([]Value(nil), vs...)
	sort.SliceStable(out, func(i, j int) bool {
		return compare(out[i], out[j]) < 0
	})
	return out
}

// compare orders values of the same kind naturally and everything else by
// type name, giving a total order over hashable keys.
func compare(a, b Value) int {
	if isReal(a) && isReal(b) {
		return compareReal(a, b)
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return strings.Compare(string(x), string(y))
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			for i := 0; i < len(x) && i < len(y); i++ {
				if c := compare(x[i], y[i]); c != 0 {
					return c
				}
			}
			return len(x) - len(y)
		}
	}
	if c := strings.Compare(TypeName(a), TypeName(b)); c != 0 {
		return c
	}
	return strings.Compare(Repr(a), Repr(b))
}

func isReal(v Value) bool {
	switch v.(type) {
	case bool, int64, *big.Int, float64:
		return true
	}
	return false
}

func compareReal(a, b Value) int {
	return toBigFloat(a).Cmp(toBigFloat(b))
}

func toBigFloat(v Value) *big.Float {
	switch x := v.(type) {
	case bool:
		if x {
			return big.NewFloat(1)
		}
		return big.NewFloat(0)
	case int64:
		return new(big.Float).SetInt64(x)
	case *big.Int:
		return new(big.Float).SetInt(x)
	case float64:
		if math.IsNaN(x) {
			return big.NewFloat(0)
		}
		return big.NewFloat(x)
	}
	return big.NewFloat(0)
}
