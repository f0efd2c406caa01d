package pylit

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// maxDepth bounds container nesting so hostile input cannot exhaust the stack.
const maxDepth = 200

// SyntaxError reports input that is not a single literal expression.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

type parser struct {
	l *lexer

	curToken  token
	peekToken token

	depth int
}

// Parse parses src as exactly one literal expression.
func Parse(src string) (Value, error) {
	p := &parser{l: newLexer(src)}

	// Read two tokens, so curToken and peekToken are both set
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	if p.curTokenIs(tokEOF) {
		return nil, p.errorf("empty input")
	}

	v, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if !p.curTokenIs(tokEOF) {
		return nil, p.errorf("unexpected %s after literal", p.curToken.typ)
	}
	return v, nil
}

func (p *parser) nextToken() error {
	p.curToken = p.peekToken
	tok, err := p.l.nextToken()
	if err != nil {
		return err
	}
	p.peekToken = tok
	return nil
}

func (p *parser) curTokenIs(t tokenType) bool {
	return p.curToken.typ == t
}

func (p *parser) peekTokenIs(t tokenType) bool {
	return p.peekToken.typ == t
}

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: p.curToken.line, Column: p.curToken.column, Msg: fmt.Sprintf(format, args...)}
}

// expectPeek advances when the next token has type t.
func (p *parser) expectPeek(t tokenType) error {
	if !p.peekTokenIs(t) {
		return &SyntaxError{
			Line:   p.peekToken.line,
			Column: p.peekToken.column,
			Msg:    fmt.Sprintf("expected %s, got %s", t, p.peekToken.typ),
		}
	}
	return p.nextToken()
}

// parseExpression parses the literal starting at curToken. On return
// curToken is the last token of the literal.
func (p *parser) parseExpression() (Value, error) {
	switch p.curToken.typ {
	case tokString, tokBytes:
		return p.parseStrings()
	case tokInt, tokFloat, tokImag, tokPlus, tokMinus:
		return p.parseNumberExpression()
	case tokName:
		return p.parseName()
	case tokLBracket:
		return p.nested(p.parseList)
	case tokLParen:
		return p.nested(p.parseParen)
	case tokLBrace:
		return p.nested(p.parseBrace)
	default:
		return nil, p.errorf("unexpected %s", p.curToken.typ)
	}
}

func (p *parser) nested(fn func() (Value, error)) (Value, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, p.errorf("literal nested too deeply")
	}
	return fn()
}

// parseStrings handles implicit concatenation of adjacent string literals.
func (p *parser) parseStrings() (Value, error) {
	isBytes := p.curTokenIs(tokBytes)
	var b strings.Builder
	b.WriteString(p.curToken.literal)
	for p.peekTokenIs(tokString) || p.peekTokenIs(tokBytes) {
		if p.peekTokenIs(tokBytes) != isBytes {
			return nil, p.errorf("cannot mix bytes and nonbytes literals")
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		b.WriteString(p.curToken.literal)
	}
	if isBytes {
		return Bytes(b.String()), nil
	}
	return b.String(), nil
}

func (p *parser) parseName() (Value, error) {
	switch p.curToken.literal {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "set":
		// set() is the only spelling of an empty set
		if p.peekTokenIs(tokLParen) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if err := p.expectPeek(tokRParen); err != nil {
				return nil, err
			}
			return Set{}, nil
		}
	}
	return nil, p.errorf("name %q is not a literal", p.curToken.literal)
}

// parseNumberExpression accepts a signed number, optionally followed by
// "+ <imag>" or "- <imag>" to spell a complex value.
func (p *parser) parseNumberExpression() (Value, error) {
	left, err := p.parseSigned()
	if err != nil {
		return nil, err
	}
	if !p.peekTokenIs(tokPlus) && !p.peekTokenIs(tokMinus) {
		return left, nil
	}
	if _, ok := left.(complex128); ok {
		return nil, p.errorf("malformed complex literal")
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	negate := p.curTokenIs(tokMinus)
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if !p.curTokenIs(tokImag) {
		return nil, p.errorf("only complex literals may use binary '+' or '-'")
	}
	right, err := parseNumber(p.curToken)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	im := imag(right.(complex128))
	if negate {
		im = -im
	}
	return complex(toFloat(left), im), nil
}

// parseSigned parses a number with at most one leading sign.
func (p *parser) parseSigned() (Value, error) {
	sign := p.curToken.typ
	if sign == tokPlus || sign == tokMinus {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	switch p.curToken.typ {
	case tokInt, tokFloat, tokImag:
	default:
		return nil, p.errorf("bad operand for unary sign: %s", p.curToken.typ)
	}
	v, err := parseNumber(p.curToken)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	if sign == tokMinus {
		return negateNumber(v), nil
	}
	return v, nil
}

func (p *parser) parseList() (Value, error) {
	elems, _, err := p.parseElements(tokRBracket)
	if err != nil {
		return nil, err
	}
	return List(elems), nil
}

// parseParen parses a tuple or a parenthesized literal.
func (p *parser) parseParen() (Value, error) {
	elems, trailingComma, err := p.parseElements(tokRParen)
	if err != nil {
		return nil, err
	}
	if len(elems) == 1 && !trailingComma {
		return elems[0], nil
	}
	return Tuple(elems), nil
}

// parseElements parses a comma separated sequence up to the closing token.
// It reports whether a comma directly preceded the closing token.
func (p *parser) parseElements(closing tokenType) ([]Value, bool, error) {
	elems := []Value{}
	trailingComma := false
	for {
		if err := p.nextToken(); err != nil {
			return nil, false, err
		}
		if p.curTokenIs(closing) {
			return elems, trailingComma, nil
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		elems = append(elems, v)
		trailingComma = false

		if p.peekTokenIs(tokComma) {
			if err := p.nextToken(); err != nil {
				return nil, false, err
			}
			trailingComma = true
			continue
		}
		if err := p.expectPeek(closing); err != nil {
			return nil, false, err
		}
		return elems, false, nil
	}
}

// parseBrace parses a dict or a non-empty set.
func (p *parser) parseBrace() (Value, error) {
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if p.curTokenIs(tokRBrace) {
		return NewDict(), nil
	}

	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.peekTokenIs(tokColon) {
		return p.parseDictFrom(first)
	}
	return p.parseSetFrom(first)
}

func (p *parser) parseDictFrom(firstKey Value) (Value, error) {
	d := NewDict()
	key := firstKey
	for {
		keyTok := p.curToken
		if err := p.expectPeek(tokColon); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := d.Set(key, val); err != nil {
			return nil, &SyntaxError{Line: keyTok.line, Column: keyTok.column, Msg: err.Error()}
		}

		if !p.peekTokenIs(tokComma) {
			if err := p.expectPeek(tokRBrace); err != nil {
				return nil, err
			}
			return d, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.curTokenIs(tokRBrace) {
			return d, nil
		}
		key, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseSetFrom(first Value) (Value, error) {
	s := Set{}
	seen := map[string]bool{}
	add := func(v Value) error {
		if !Hashable(v) {
			return p.errorf("unhashable type: '%s'", TypeName(v))
		}
		k := hashKey(v)
		if !seen[k] {
			seen[k] = true
			s = append(s, v)
		}
		return nil
	}
	if err := add(first); err != nil {
		return nil, err
	}
	for {
		if !p.peekTokenIs(tokComma) {
			if err := p.expectPeek(tokRBrace); err != nil {
				return nil, err
			}
			return s, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.curTokenIs(tokRBrace) {
			return s, nil
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := add(v); err != nil {
			return nil, err
		}
	}
}

func parseNumber(tok token) (Value, error) {
	lit := tok.literal
	if strings.Contains(lit, "__") || strings.HasSuffix(strings.TrimRight(lit, "jJ"), "_") {
		return nil, fmt.Errorf("invalid number literal %q", lit)
	}
	clean := strings.ReplaceAll(lit, "_", "")

	switch tok.typ {
	case tokImag:
		f, err := strconv.ParseFloat(clean[:len(clean)-1], 64)
		if err != nil && !isRangeErr(err) {
			return nil, fmt.Errorf("invalid imaginary literal %q", lit)
		}
		return complex(0, f), nil
	case tokFloat:
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil && !isRangeErr(err) {
			return nil, fmt.Errorf("invalid float literal %q", lit)
		}
		return f, nil
	default:
		base := 10
		digits := clean
		if len(clean) > 1 && clean[0] == '0' {
			switch clean[1] {
			case 'x', 'X':
				base, digits = 16, clean[2:]
			case 'o', 'O':
				base, digits = 8, clean[2:]
			case 'b', 'B':
				base, digits = 2, clean[2:]
			default:
				if strings.Trim(clean, "0") != "" {
					return nil, fmt.Errorf("leading zeros in decimal integer literals are not permitted")
				}
			}
		}
		if digits == "" {
			return nil, fmt.Errorf("invalid integer literal %q", lit)
		}
		n, ok := new(big.Int).SetString(digits, base)
		if !ok {
			return nil, fmt.Errorf("invalid integer literal %q", lit)
		}
		if n.IsInt64() {
			return n.Int64(), nil
		}
		return n, nil
	}
}

func isRangeErr(err error) bool {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err == strconv.ErrRange
	}
	return false
}

func negateNumber(v Value) Value {
	switch x := v.(type) {
	case int64:
		if x == minInt64 {
			return new(big.Int).Neg(big.NewInt(x))
		}
		return -x
	case *big.Int:
		n := new(big.Int).Neg(x)
		if n.IsInt64() {
			return n.Int64()
		}
		return n
	case float64:
		return -x
	case complex128:
		return -x
	}
	return v
}

const minInt64 = -1 << 63

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case float64:
		return x
	}
	return 0
}
