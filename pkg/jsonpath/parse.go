package jsonpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyExpression is returned when parsing an empty expression.
	ErrEmptyExpression = errors.New("empty path expression")

	// ErrSyntax is returned when an expression is malformed.
	ErrSyntax = errors.New("path expression syntax error")
)

type segmentKind int

const (
	segmentChild segmentKind = iota
	segmentRecursive
	segmentIndex
	segmentWildcard
	segmentFilter
)

type segment struct {
	kind   segmentKind
	name   string
	index  int
	filter *predicate
}

// predicate is a single-condition filter: @.<field> <op> <reference|literal>.
type predicate struct {
	field   []segment
	negate  bool
	ref     *Path
	literal any
}

// Path is a compiled path expression.
type Path struct {
	raw      string
	segments []segment
}

func (p *Path) String() string {
	return p.raw
}

// Parse compiles expr. Supported forms are `$`, `$.a.b`, `$..a`, `$[0]`,
// `$['a']`, `[*]`, `.*` and `a[?(@.b==$..c)].d`. A leading field without `$`
// is read as a direct child of the root. Filter operands may be a `$` path or
// a quoted string, number, boolean or null literal.
func Parse(expr string) (*Path, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return nil, ErrEmptyExpression
	}

	p := &parser{input: raw}

	segments, err := p.parsePath(true)
	if err != nil {
		return nil, err
	}

	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos])
	}

	return &Path{raw: raw, segments: segments}, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, p.pos, p.input, fmt.Sprintf(format, args...))
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}

	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for !p.eof() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) expect(c byte) error {
	p.skipSpaces()

	if p.peek() != c {
		return p.errorf("expected %q", c)
	}

	p.pos++

	return nil
}

// parsePath reads a root marker followed by segments and stops at the first
// byte that cannot continue a path, leaving it for the caller.
func (p *parser) parsePath(allowBareField bool) ([]segment, error) {
	var segments []segment

	switch c := p.peek(); {
	case c == '$' || c == '@':
		p.pos++
	case allowBareField && isNameByte(c):
		segments = append(segments, segment{kind: segmentChild, name: p.readName()})
	default:
		return nil, p.errorf("expected '$'")
	}

	for !p.eof() {
		switch p.peek() {
		case '.':
			seg, err := p.parseDot()
			if err != nil {
				return nil, err
			}

			segments = append(segments, seg)
		case '[':
			seg, err := p.parseBracket()
			if err != nil {
				return nil, err
			}

			segments = append(segments, seg)
		default:
			return segments, nil
		}
	}

	return segments, nil
}

func (p *parser) parseDot() (segment, error) {
	if strings.HasPrefix(p.input[p.pos:], "..") {
		p.pos += 2

		name := p.readName()
		if name == "" {
			return segment{}, p.errorf("expected field name after '..'")
		}

		return segment{kind: segmentRecursive, name: name}, nil
	}

	p.pos++

	if p.peek() == '*' {
		p.pos++

		return segment{kind: segmentWildcard}, nil
	}

	name := p.readName()
	if name == "" {
		return segment{}, p.errorf("expected field name after '.'")
	}

	return segment{kind: segmentChild, name: name}, nil
}

func (p *parser) parseBracket() (segment, error) {
	p.pos++
	p.skipSpaces()

	var seg segment

	switch c := p.peek(); {
	case c == '*':
		p.pos++
		seg = segment{kind: segmentWildcard}
	case c == '?':
		p.pos++

		if err := p.expect('('); err != nil {
			return segment{}, err
		}

		pred, err := p.parsePredicate()
		if err != nil {
			return segment{}, err
		}

		if err := p.expect(')'); err != nil {
			return segment{}, err
		}

		seg = segment{kind: segmentFilter, filter: pred}
	case c == '\'' || c == '"':
		name, err := p.readQuoted()
		if err != nil {
			return segment{}, err
		}

		seg = segment{kind: segmentChild, name: name}
	default:
		start := p.pos
		if c == '-' {
			p.pos++
		}

		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}

		index, err := strconv.Atoi(p.input[start:p.pos])
		if err != nil {
			return segment{}, p.errorf("invalid index")
		}

		seg = segment{kind: segmentIndex, index: index}
	}

	if err := p.expect(']'); err != nil {
		return segment{}, err
	}

	return seg, nil
}

func (p *parser) parsePredicate() (*predicate, error) {
	p.skipSpaces()

	if p.peek() != '@' {
		return nil, p.errorf("filter must start with '@'")
	}

	field, err := p.parsePath(false)
	if err != nil {
		return nil, err
	}

	if len(field) == 0 {
		return nil, p.errorf("filter needs a field")
	}

	pred := &predicate{field: field}

	p.skipSpaces()

	switch {
	case strings.HasPrefix(p.input[p.pos:], "=="):
	case strings.HasPrefix(p.input[p.pos:], "!="):
		pred.negate = true
	default:
		return nil, p.errorf("only == and != comparisons are supported")
	}

	p.pos += 2
	p.skipSpaces()

	switch c := p.peek(); {
	case c == '$':
		start := p.pos

		segments, err := p.parsePath(false)
		if err != nil {
			return nil, err
		}

		pred.ref = &Path{raw: strings.TrimSpace(p.input[start:p.pos]), segments: segments}
	case c == '\'' || c == '"':
		literal, err := p.readQuoted()
		if err != nil {
			return nil, err
		}

		pred.literal = literal
	default:
		literal, err := p.readLiteral()
		if err != nil {
			return nil, err
		}

		pred.literal = literal
	}

	return pred, nil
}

func (p *parser) readName() string {
	start := p.pos
	for !p.eof() && isNameByte(p.peek()) {
		p.pos++
	}

	return p.input[start:p.pos]
}

func (p *parser) readQuoted() (string, error) {
	quote := p.peek()
	p.pos++

	end := strings.IndexByte(p.input[p.pos:], quote)
	if end < 0 {
		return "", p.errorf("unterminated string")
	}

	value := p.input[p.pos : p.pos+end]
	p.pos += end + 1

	return value, nil
}

func (p *parser) readLiteral() (any, error) {
	start := p.pos
	for !p.eof() && p.peek() != ')' && p.peek() != ' ' {
		p.pos++
	}

	token := p.input[start:p.pos]

	switch token {
	case "":
		return nil, p.errorf("expected comparison operand")
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	number, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil, p.errorf("invalid literal %q", token)
	}

	return number, nil
}

func isNameByte(c byte) bool {
	switch c {
	case 0, '.', '[', ']', '(', ')', '=', '!', '<', '>', ' ', '\t', '\'', '"', ',', '$', '@', '*':
		return false
	default:
		return true
	}
}
