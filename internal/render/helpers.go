// internal/render/helpers.go
package render

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

func arg(args []interface{}, i int) interface{} {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func callUtil(name string, args []interface{}) (interface{}, error) {
	switch name {
	case "get":
		obj, ok := arg(args, 0).(map[string]interface{})
		path := stringify(arg(args, 1))
		if ok {
			if v, found := lookupPath(obj, path, splitPath(path)); found && v != nil {
				return v, nil
			}
		}
		return arg(args, 2), nil
	case "join":
		sep := ","
		if len(args) > 1 && args[1] != nil {
			sep = stringify(args[1])
		}
		switch list := arg(args, 0).(type) {
		case []interface{}:
			return joinValues(list, sep), nil
		case []string:
			return strings.Join(list, sep), nil
		}
		return "", nil
	case "upper", "toUpper":
		return strings.ToUpper(stringify(arg(args, 0))), nil
	case "lower", "toLower":
		return strings.ToLower(stringify(arg(args, 0))), nil
	case "capitalize":
		return capitalize(stringify(arg(args, 0))), nil
	case "trim":
		return strings.TrimSpace(stringify(arg(args, 0))), nil
	case "default", "defaultTo":
		v := arg(args, 0)
		if f, ok := v.(float64); v == nil || (ok && math.IsNaN(f)) {
			return arg(args, 1), nil
		}
		return v, nil
	case "first", "head":
		if list, ok := asList(arg(args, 0)); ok && len(list) > 0 {
			return list[0], nil
		}
		return nil, nil
	case "last":
		if list, ok := asList(arg(args, 0)); ok && len(list) > 0 {
			return list[len(list)-1], nil
		}
		return nil, nil
	case "size":
		return float64(size(arg(args, 0))), nil
	case "isEmpty":
		return size(arg(args, 0)) == 0, nil
	case "isNil":
		return arg(args, 0) == nil, nil
	}
	return nil, fmt.Errorf("%w: _.%s is not a function", ErrEvaluation, name)
}

func callString(s, name string, args []interface{}) (interface{}, error) {
	switch name {
	case "toUpperCase":
		return strings.ToUpper(s), nil
	case "toLowerCase":
		return strings.ToLower(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	case "includes":
		return strings.Contains(s, stringify(arg(args, 0))), nil
	case "startsWith":
		return strings.HasPrefix(s, stringify(arg(args, 0))), nil
	case "replace":
		return strings.Replace(s, stringify(arg(args, 0)), stringify(arg(args, 1)), 1), nil
	case "split":
		parts := strings.Split(s, stringify(arg(args, 0)))
		out := make([]interface{}, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "toString":
		return s, nil
	}
	return nil, fmt.Errorf("%w: string has no method %q", ErrEvaluation, name)
}

func callArray(list []interface{}, name string, args []interface{}) (interface{}, error) {
	switch name {
	case "join":
		sep := ","
		if len(args) > 0 && args[0] != nil {
			sep = stringify(args[0])
		}
		return joinValues(list, sep), nil
	case "includes":
		for _, item := range list {
			if looseEqual(item, arg(args, 0)) {
				return true, nil
			}
		}
		return false, nil
	case "toString":
		return joinValues(list, ","), nil
	}
	return nil, fmt.Errorf("%w: array has no method %q", ErrEvaluation, name)
}

func asList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func size(v interface{}) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return len([]rune(t))
	case []interface{}:
		return len(t)
	case []string:
		return len(t)
	case map[string]interface{}:
		return len(t)
	}
	return 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
