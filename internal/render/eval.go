// internal/render/eval.go
package render

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

// utilNamespace is the value bound to "_".
type utilNamespace struct{}

// momentFunc is the value bound to "moment".
type momentFunc struct{}

// tolerant helpers receive null for missing arguments instead of failing.
var tolerantHelpers = map[string]bool{
	"get":       true,
	"default":   true,
	"defaultTo": true,
	"isEmpty":   true,
	"isNil":     true,
}

type scope struct {
	data map[string]interface{}
	loc  *time.Location
	now  time.Time
}

func (s *scope) renderSegments(segs []segment) (string, error) {
	var b strings.Builder
	for _, seg := range segs {
		switch sg := seg.(type) {
		case textSegment:
			b.WriteString(string(sg))
		case interpSegment:
			v, err := s.eval(sg.expr)
			if err != nil {
				return "", err
			}
			out := stringify(v)
			if sg.escape {
				out = html.EscapeString(out)
			}
			b.WriteString(out)
		}
	}
	return b.String(), nil
}

// evalOptional evaluates n and maps a missing field onto null.
func (s *scope) evalOptional(n node) (interface{}, error) {
	v, err := s.eval(n)
	if errors.Is(err, ErrMissingField) {
		return nil, nil
	}
	return v, err
}

func (s *scope) eval(n node) (interface{}, error) {
	switch t := n.(type) {
	case literalNode:
		return t.value, nil

	case identNode:
		return s.resolveIdent(t.name)

	case memberNode:
		obj, err := s.eval(t.object)
		if err != nil {
			return nil, err
		}
		key := t.name
		if t.computed != nil {
			k, err := s.eval(t.computed)
			if err != nil {
				return nil, err
			}
			key = stringify(k)
		}
		return s.member(obj, key, describe(n))

	case callNode:
		return s.evalCall(t)

	case unaryNode:
		if t.op == "!" {
			v, err := s.evalOptional(t.operand)
			if err != nil {
				return nil, err
			}
			return !truthy(v), nil
		}
		v, err := s.eval(t.operand)
		if err != nil {
			return nil, err
		}
		f, ok := toNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: cannot negate %q", ErrEvaluation, stringify(v))
		}
		return -f, nil

	case binaryNode:
		return s.evalBinary(t)

	case conditionalNode:
		test, err := s.evalOptional(t.test)
		if err != nil {
			return nil, err
		}
		if truthy(test) {
			return s.eval(t.consequent)
		}
		return s.eval(t.alternate)
	}
	return nil, fmt.Errorf("%w: unknown expression node", ErrEvaluation)
}

func (s *scope) resolveIdent(name string) (interface{}, error) {
	if v, ok := s.data[name]; ok {
		return v, nil
	}
	switch name {
	case "data":
		return s.data, nil
	case "_":
		return utilNamespace{}, nil
	case "moment":
		return momentFunc{}, nil
	}
	return nil, fmt.Errorf("%w: %s is not defined", ErrMissingField, name)
}

func (s *scope) member(obj interface{}, key, path string) (interface{}, error) {
	switch o := obj.(type) {
	case nil:
		return nil, fmt.Errorf("%w: cannot read %s of null", ErrMissingField, path)
	case map[string]interface{}:
		v, ok := o[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, path)
		}
		return v, nil
	case []interface{}:
		if key == "length" {
			return float64(len(o)), nil
		}
		if v, ok := child(o, key); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingField, path)
	case []string:
		if key == "length" {
			return float64(len(o)), nil
		}
		if v, ok := child(o, key); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingField, path)
	case string:
		if key == "length" {
			return float64(len([]rune(o))), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, path)
}

func (s *scope) evalCall(c callNode) (interface{}, error) {
	switch callee := c.callee.(type) {
	case identNode:
		fn, err := s.resolveIdent(callee.name)
		if err != nil {
			return nil, err
		}
		if _, ok := fn.(momentFunc); !ok {
			return nil, fmt.Errorf("%w: %s is not a function", ErrEvaluation, callee.name)
		}
		args, err := s.evalArgs(c.args, false)
		if err != nil {
			return nil, err
		}
		return newMoment(args, s.location(), s.now), nil

	case memberNode:
		recv, err := s.eval(callee.object)
		if err != nil {
			return nil, err
		}
		name := callee.name
		if callee.computed != nil {
			k, err := s.eval(callee.computed)
			if err != nil {
				return nil, err
			}
			name = stringify(k)
		}
		_, isUtil := recv.(utilNamespace)
		args, err := s.evalArgs(c.args, isUtil && tolerantHelpers[name])
		if err != nil {
			return nil, err
		}
		return s.callMethod(recv, name, args)
	}
	return nil, fmt.Errorf("%w: expression is not callable", ErrEvaluation)
}

func (s *scope) evalArgs(nodes []node, tolerant bool) ([]interface{}, error) {
	args := make([]interface{}, len(nodes))
	for i, n := range nodes {
		var (
			v   interface{}
			err error
		)
		if tolerant {
			v, err = s.evalOptional(n)
		} else {
			v, err = s.eval(n)
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (s *scope) callMethod(recv interface{}, name string, args []interface{}) (interface{}, error) {
	switch r := recv.(type) {
	case utilNamespace:
		return callUtil(name, args)
	case momentFunc:
		if name == "tz" {
			loc := s.location()
			if len(args) > 1 {
				if l, err := time.LoadLocation(stringify(args[len(args)-1])); err == nil {
					loc = l
				}
				args = args[:len(args)-1]
			}
			return newMoment(args, loc, s.now), nil
		}
	case momentValue:
		return r.call(name, args)
	case string:
		return callString(r, name, args)
	case []interface{}:
		return callArray(r, name, args)
	case []string:
		items := make([]interface{}, len(r))
		for i, v := range r {
			items[i] = v
		}
		return callArray(items, name, args)
	}
	return nil, fmt.Errorf("%w: %s is not a function", ErrEvaluation, name)
}

func (s *scope) evalBinary(b binaryNode) (interface{}, error) {
	switch b.op {
	case "||":
		left, err := s.evalOptional(b.left)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return left, nil
		}
		return s.eval(b.right)
	case "&&":
		left, err := s.evalOptional(b.left)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return left, nil
		}
		return s.eval(b.right)
	}

	left, err := s.eval(b.left)
	if err != nil {
		return nil, err
	}
	right, err := s.eval(b.right)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "==", "===":
		return looseEqual(left, right), nil
	case "!=", "!==":
		return !looseEqual(left, right), nil
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if !ls && !rs {
			lf, lok := toNumber(left)
			rf, rok := toNumber(right)
			if lok && rok {
				return lf + rf, nil
			}
		}
		return stringify(left) + stringify(right), nil
	case "-", "<", ">", "<=", ">=":
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if !lok || !rok {
			if b.op == "-" {
				return nil, fmt.Errorf("%w: cannot subtract non-numbers", ErrEvaluation)
			}
			return compareStrings(b.op, stringify(left), stringify(right)), nil
		}
		switch b.op {
		case "-":
			return lf - rf, nil
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		default:
			return lf >= rf, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown operator %s", ErrEvaluation, b.op)
}

func compareStrings(op, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	}
	return a >= b
}

func (s *scope) location() *time.Location {
	if tz, ok := s.data["timezone"].(string); ok && tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return s.loc
}

// describe prints a member chain for error messages.
func describe(n node) string {
	switch t := n.(type) {
	case identNode:
		return t.name
	case memberNode:
		if t.computed != nil {
			if lit, ok := t.computed.(literalNode); ok {
				return describe(t.object) + "[" + strconv.Quote(stringify(lit.value)) + "]"
			}
			return describe(t.object) + "[…]"
		}
		return describe(t.object) + "." + t.name
	case callNode:
		return describe(t.callee) + "()"
	}
	return "expression"
}
