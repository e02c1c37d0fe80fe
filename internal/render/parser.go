// internal/render/parser.go
package render

import (
	"fmt"
	"strings"
)

// AST

type node interface{}

type literalNode struct{ value interface{} }

type identNode struct{ name string }

type memberNode struct {
	object   node
	name     string // static property
	computed node   // obj[expr]
}

type callNode struct {
	callee node
	args   []node
}

type unaryNode struct {
	op      string
	operand node
}

type binaryNode struct {
	op          string
	left, right node
}

type conditionalNode struct {
	test, consequent, alternate node
}

// Template segments

type segment interface{ isSegment() }

type textSegment string

type interpSegment struct {
	source string
	expr   node
	escape bool
}

func (textSegment) isSegment()   {}
func (interpSegment) isSegment() {}

// parseSegments splits a template field into literal text and interpolations.
// Recognized blocks: {{%= expr %}}, {{%- expr %}} (HTML escaped) and {{ expr }}.
func parseSegments(src string) ([]segment, error) {
	var segs []segment
	rest := src
	for {
		idx := strings.Index(rest, "{{")
		if idx < 0 {
			if rest != "" {
				segs = append(segs, textSegment(rest))
			}
			return segs, nil
		}
		if idx > 0 {
			segs = append(segs, textSegment(rest[:idx]))
		}
		rest = rest[idx+2:]

		closer := "}}"
		escape := false
		switch {
		case strings.HasPrefix(rest, "%="):
			rest, closer = rest[2:], "%}}"
		case strings.HasPrefix(rest, "%-"):
			rest, closer, escape = rest[2:], "%}}", true
		case strings.HasPrefix(rest, "%"):
			return nil, fmt.Errorf("%w: code blocks are not supported", ErrSyntax)
		}

		end := strings.Index(rest, closer)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated expression block", ErrSyntax)
		}
		source := strings.TrimSpace(rest[:end])
		expr, err := parseExpression(source)
		if err != nil {
			return nil, err
		}
		segs = append(segs, interpSegment{source: source, expr: expr, escape: escape})
		rest = rest[end+len(closer):]
	}
}

type parser struct {
	toks []token
	pos  int
}

func parseExpression(src string) (node, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.peek().text, p.peek().pos)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(op string) bool {
	if t := p.peek(); t.kind == tokPunct && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		return fmt.Errorf("%w: expected %q at %d", ErrSyntax, op, p.peek().pos)
	}
	return nil
}

func (p *parser) parseTernary() (node, error) {
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return test, nil
	}
	consequent, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	alternate, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return conditionalNode{test: test, consequent: consequent, alternate: alternate}, nil
}

// binary operator precedence levels, lowest first
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"===", "!==", "==", "!="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct || !contains(precedence[level], t.text) {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.accept("!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "!", operand: operand}, nil
	}
	if p.accept("-") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("."):
			t := p.next()
			if t.kind != tokIdent {
				return nil, fmt.Errorf("%w: expected property name at %d", ErrSyntax, t.pos)
			}
			n = memberNode{object: n, name: t.text}
		case p.accept("["):
			idx, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			n = memberNode{object: n, computed: idx}
		case p.accept("("):
			var args []node
			if !p.accept(")") {
				for {
					arg, err := p.parseTernary()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.accept(")") {
						break
					}
					if err := p.expect(","); err != nil {
						return nil, err
					}
				}
			}
			n = callNode{callee: n, args: args}
		default:
			return n, nil
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return literalNode{value: t.num}, nil
	case tokString:
		return literalNode{value: t.text}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null", "undefined":
			return literalNode{value: nil}, nil
		}
		return identNode{name: t.text}, nil
	case tokPunct:
		if t.text == "(" {
			n, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		}
	}
	if t.kind == tokEOF {
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
