package pylit

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenType int

const (
	tokIllegal tokenType = iota
	tokEOF

	tokName   // True, False, None, set; anything else is rejected by the parser
	tokString // str literal, decoded
	tokBytes  // bytes literal, decoded
	tokInt
	tokFloat
	tokImag

	tokLParen   // (
	tokRParen   // )
	tokLBracket // [
	tokRBracket // ]
	tokLBrace   // {
	tokRBrace   // }
	tokComma    // ,
	tokColon    // :
	tokPlus     // +
	tokMinus    // -
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokName:
		return "name"
	case tokString:
		return "string"
	case tokBytes:
		return "bytes"
	case tokInt, tokFloat, tokImag:
		return "number"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokComma:
		return "','"
	case tokColon:
		return "':'"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	default:
		return "illegal token"
	}
}

type token struct {
	typ     tokenType
	literal string // raw source text, or the decoded value for strings
	line    int
	column  int
}

type lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *lexer) errorf(line, col int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r'):
			// explicit line continuation
			l.readChar()
		case l.ch == '#':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *lexer) nextToken() (token, error) {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.column
	if l.atEOF() {
		return token{typ: tokEOF, line: line, column: col}, nil
	}

	single := func(t tokenType) (token, error) {
		tok := token{typ: t, literal: string(l.ch), line: line, column: col}
		l.readChar()
		return tok, nil
	}

	switch l.ch {
	case '(':
		return single(tokLParen)
	case ')':
		return single(tokRParen)
	case '[':
		return single(tokLBracket)
	case ']':
		return single(tokRBracket)
	case '{':
		return single(tokLBrace)
	case '}':
		return single(tokRBrace)
	case ',':
		return single(tokComma)
	case ':':
		return single(tokColon)
	case '+':
		return single(tokPlus)
	case '-':
		return single(tokMinus)
	case '"', '\'':
		return l.readString("", line, col)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(line, col)
		}
	}

	if isDigit(l.ch) {
		return l.readNumber(line, col)
	}
	if isLetter(l.ch) {
		start := l.position
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		ident := l.input[start:l.position]
		if (l.ch == '"' || l.ch == '\'') && isStringPrefix(ident) {
			return l.readString(strings.ToLower(ident), line, col)
		}
		return token{typ: tokName, literal: ident, line: line, column: col}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.position:])
	return token{}, l.errorf(line, col, "unexpected character %q", r)
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "br", "rb":
		return true
	}
	return false
}

// readString reads a quoted literal starting at the current quote char.
func (l *lexer) readString(prefix string, line, col int) (token, error) {
	raw := strings.Contains(prefix, "r")
	isBytes := strings.Contains(prefix, "b")

	quote := l.ch
	triple := l.peekChar() == quote && l.readPosition+1 < len(l.input) && l.input[l.readPosition+1] == quote
	if triple {
		l.readChar()
		l.readChar()
	}
	l.readChar()

	var out strings.Builder
	for {
		if l.atEOF() {
			return token{}, l.errorf(line, col, "unterminated string literal")
		}
		if l.ch == quote {
			if !triple {
				l.readChar()
				break
			}
			if l.peekChar() == quote && l.readPosition+1 < len(l.input) && l.input[l.readPosition+1] == quote {
				l.readChar()
				l.readChar()
				l.readChar()
				break
			}
		}
		if l.ch == '\n' && !triple {
			return token{}, l.errorf(line, col, "unterminated string literal")
		}
		if l.ch == '\\' {
			if raw {
				// raw strings keep the backslash and the escaped char verbatim
				out.WriteByte(l.ch)
				l.readChar()
				if l.atEOF() {
					return token{}, l.errorf(line, col, "unterminated string literal")
				}
				out.WriteByte(l.ch)
				l.readChar()
				continue
			}
			if err := l.readEscape(&out, isBytes, line, col); err != nil {
				return token{}, err
			}
			continue
		}
		if isBytes && l.ch >= 0x80 {
			return token{}, l.errorf(l.line, l.column, "bytes can only contain ASCII literal characters")
		}
		out.WriteByte(l.ch)
		l.readChar()
	}

	s := out.String()
	if !isBytes && !utf8.ValidString(s) {
		return token{}, l.errorf(line, col, "invalid UTF-8 in string literal")
	}
	typ := tokString
	if isBytes {
		typ = tokBytes
	}
	return token{typ: typ, literal: s, line: line, column: col}, nil
}

// readEscape decodes one backslash escape. The current char is the backslash.
func (l *lexer) readEscape(out *strings.Builder, isBytes bool, line, col int) error {
	l.readChar()
	c := l.ch
	switch c {
	case '\n':
		l.readChar()
		return nil
	case '\\', '\'', '"':
		out.WriteByte(c)
	case 'a':
		out.WriteByte('\a')
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case 'n':
		out.WriteByte('\n')
	case 'r':
		out.WriteByte('\r')
	case 't':
		out.WriteByte('\t')
	case 'v':
		out.WriteByte('\v')
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 0
		for i := 0; i < 3 && l.ch >= '0' && l.ch <= '7'; i++ {
			n = n*8 + int(l.ch-'0')
			l.readChar()
		}
		writeCode(out, n, isBytes)
		return nil
	case 'x', 'u', 'U':
		width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[c]
		if isBytes && c != 'x' {
			// \u and \U are not escapes in bytes literals
			out.WriteByte('\\')
			out.WriteByte(c)
			break
		}
		start := l.readPosition
		end := start + width
		if end > len(l.input) {
			return l.errorf(line, col, "truncated \\%c escape", c)
		}
		n, err := strconv.ParseUint(l.input[start:end], 16, 32)
		if err != nil {
			return l.errorf(line, col, "truncated \\%c escape", c)
		}
		if n > utf8.MaxRune {
			return l.errorf(line, col, "illegal Unicode character")
		}
		for i := 0; i < width; i++ {
			l.readChar()
		}
		writeCode(out, int(n), isBytes)
	case 0:
		return l.errorf(line, col, "unterminated string literal")
	default:
		// unknown escapes are kept verbatim
		out.WriteByte('\\')
		out.WriteByte(c)
	}
	l.readChar()
	return nil
}

func writeCode(out *strings.Builder, n int, isBytes bool) {
	if isBytes {
		out.WriteByte(byte(n))
		return
	}
	out.WriteRune(rune(n))
}

// readNumber scans an int, float or imaginary literal.
func (l *lexer) readNumber(line, col int) (token, error) {
	start := l.position
	typ := tokInt

	if l.ch == '0' && strings.ContainsRune("xXoObB", rune(l.peekChar())) {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		if l.ch == '.' {
			typ = tokFloat
			l.readChar()
			for isDigit(l.ch) || l.ch == '_' {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			typ = tokFloat
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return token{}, l.errorf(line, col, "invalid decimal literal")
			}
			for isDigit(l.ch) || l.ch == '_' {
				l.readChar()
			}
		}
		if l.ch == 'j' || l.ch == 'J' {
			typ = tokImag
			l.readChar()
		}
	}
	if isLetter(l.ch) {
		return token{}, l.errorf(line, col, "invalid number literal")
	}
	return token{typ: typ, literal: l.input[start:l.position], line: line, column: col}, nil
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}
