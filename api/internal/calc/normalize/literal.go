package normalize

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SyntaxError reports where a literal stopped making sense.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal syntax error at offset %d: %s", e.Pos, e.Msg)
}

// ParseLiteral reads a single Python-style literal: quoted strings, numbers,
// True/False/None (JSON true/false/null too), lists, tuples and dicts.
// Lists and tuples decode to []any, dicts to Item, numbers to int64, *big.Int
// (integers beyond int64) or float64.
func ParseLiteral(s string) (any, error) {
	p := &litParser{s: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.s) {
		return nil, p.errf("unexpected %q after literal", p.peekRune())
	}
	return v, nil
}

type litParser struct {
	s   string
	pos int
}

func (p *litParser) errf(format string, args ...any) error {
	return &SyntaxError{Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *litParser) eof() bool { return p.pos >= len(p.s) }

func (p *litParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *litParser) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(p.s[p.pos:])
	return r
}

func (p *litParser) skipSpace() {
	for !p.eof() {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		case '\\':
			// line continuation
			if strings.HasPrefix(p.s[p.pos:], "\\\n") {
				p.pos += 2
				continue
			}
			return
		default:
			return
		}
	}
}

func (p *litParser) value() (any, error) {
	if p.eof() {
		return nil, p.errf("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.sequence('(', ')')
	case c == '{':
		return p.mapping()
	case c == '\'' || c == '"':
		return p.stringLit(false)
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.word()
	}
	return nil, p.errf("unexpected %q", p.peekRune())
}

func (p *litParser) sequence(open, closing byte) (any, error) {
	start := p.pos
	p.pos++ // open
	out := []any{}
	sawComma := false
	for {
		p.skipSpace()
		if p.eof() {
			return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unterminated %q", open)}
		}
		if p.peek() == closing {
			p.pos++
			// (x) without a comma is just a parenthesized value
			if open == '(' && len(out) == 1 && !sawComma {
				return out[0], nil
			}
			return out, nil
		}
		if len(out) > 0 {
			if p.peek() != ',' {
				return nil, p.errf("expected ',' or %q", closing)
			}
			p.pos++
			sawComma = true
			p.skipSpace()
			if p.peek() == closing {
				continue
			}
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (p *litParser) mapping() (any, error) {
	start := p.pos
	p.pos++ // {
	out := Item{}
	n := 0
	for {
		p.skipSpace()
		if p.eof() {
			return nil, &SyntaxError{Pos: start, Msg: "unterminated '{'"}
		}
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		if n > 0 {
			if p.peek() != ',' {
				return nil, p.errf("expected ',' or '}'")
			}
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				continue
			}
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		switch k.(type) {
		case []any, Item:
			return nil, p.errf("unhashable dict key")
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errf("expected ':' after dict key")
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[Render(k)] = v
		n++
	}
}

// stringLit reads one or more adjacent string literals and concatenates them.
func (p *litParser) stringLit(raw bool) (any, error) {
	var b strings.Builder
	for {
		s, err := p.quoted(raw)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
		save := p.pos
		p.skipSpace()
		switch {
		case p.peek() == '\'' || p.peek() == '"':
			raw = false
		case p.atStringPrefix():
			raw = p.peek()|0x20 == 'r'
			p.pos++
		default:
			p.pos = save
			return b.String(), nil
		}
	}
}

// atStringPrefix reports whether the cursor sits on an r/u prefix directly followed by a quote.
func (p *litParser) atStringPrefix() bool {
	if p.pos+1 >= len(p.s) {
		return false
	}
	switch p.s[p.pos] {
	case 'r', 'R', 'u', 'U':
		q := p.s[p.pos+1]
		return q == '\'' || q == '"'
	}
	return false
}

func (p *litParser) quoted(raw bool) (string, error) {
	start := p.pos
	delim := string(p.s[p.pos])
	if strings.HasPrefix(p.s[p.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)

	var b strings.Builder
	for {
		if p.eof() {
			return "", &SyntaxError{Pos: start, Msg: "unterminated string"}
		}
		if strings.HasPrefix(p.s[p.pos:], delim) {
			p.pos += len(delim)
			return b.String(), nil
		}
		c := p.s[p.pos]
		if c == '\n' && len(delim) == 1 {
			return "", &SyntaxError{Pos: start, Msg: "unterminated string"}
		}
		if c == '\\' && p.pos+1 < len(p.s) {
			if raw {
				b.WriteString(p.s[p.pos : p.pos+2])
				p.pos += 2
				continue
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *litParser) escape(b *strings.Builder) error {
	c := p.s[p.pos+1]
	p.pos += 2
	switch c {
	case '\n':
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	default:
		// unknown escapes are kept verbatim
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *litParser) hexEscape(b *strings.Builder, n int) error {
	if p.pos+n > len(p.s) {
		return p.errf("truncated \\x/\\u escape")
	}
	v, err := strconv.ParseUint(p.s[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return p.errf("bad hex escape %q", p.s[p.pos:p.pos+n])
	}
	p.pos += n
	b.WriteRune(rune(v))
	return nil
}

func (p *litParser) number() (any, error) {
	start := p.pos
	neg := false
	for p.peek() == '-' || p.peek() == '+' {
		if p.peek() == '-' {
			neg = !neg
		}
		p.pos++
		p.skipSpace()
	}
	numStart := p.pos
	for !p.eof() {
		c := p.peek()
		if isDigit(c) || c == '.' || c == '_' || c == 'e' || c == 'E' || c == 'x' || c == 'X' ||
			c == 'o' || c == 'O' || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && p.pos > numStart && (p.s[p.pos-1] == 'e' || p.s[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	lit := strings.ReplaceAll(p.s[numStart:p.pos], "_", "")
	if lit == "" {
		return nil, &SyntaxError{Pos: start, Msg: "sign without number"}
	}
	if !isDigit(lit[0]) && lit[0] != '.' {
		return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("bad number %q", lit)}
	}
	base := 10
	if isPrefixedInt(lit) {
		base = 0
	}
	if i, err := strconv.ParseInt(lit, base, 64); err == nil {
		if neg {
			i = -i
		}
		return i, nil
	}
	// целые вне int64 храним точно
	if n, ok := new(big.Int).SetString(lit, base); ok {
		if neg {
			n.Neg(n)
		}
		return n, nil
	}
	if isPrefixedInt(lit) {
		return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("bad number %q", lit)}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("bad number %q", lit)}
	}
	if neg {
		f = -f
	}
	return f, nil
}

func isPrefixedInt(lit string) bool {
	if len(lit) < 2 || lit[0] != '0' {
		return false
	}
	switch lit[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

func (p *litParser) word() (any, error) {
	start := p.pos
	if p.atStringPrefix() {
		raw := p.peek()|0x20 == 'r'
		p.pos++
		return p.stringLit(raw)
	}
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	switch w := p.s[start:p.pos]; w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	default:
		return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("bare name %q is not a literal", w)}
	}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isIdentChar(c byte) bool  { return isIdentStart(c) || isDigit(c) }

// Render turns a decoded literal leaf into display text.
func Render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case *big.Int:
		return x.String()
	case float64:
		return formatFloat(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Item:
		parts := make([]string, 0, len(x))
		for _, k := range x.keys() {
			parts = append(parts, strconv.Quote(k)+": "+repr(x[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// formatFloat prints the shortest form, switching to an exponent outside [1e-4, 1e16).
func formatFloat(f float64) string {
	if a := math.Abs(f); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func repr(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case nil:
		return "None"
	}
	return Render(v)
}
