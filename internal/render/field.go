// internal/render/field.go
package render

import (
	"strconv"
	"strings"
)

// Field is a parsed template field value. It is exactly one of EmptyField,
// PathField or TemplateField.
type Field interface {
	Raw() string
	isField()
}

// EmptyField is an absent or empty template value.
type EmptyField struct{}

// PathField is a value without expression markers. It is first looked up as a
// path into the data and otherwise used as literal text.
type PathField struct {
	raw  string
	path []string
}

// TemplateField carries at least one expression block.
type TemplateField struct {
	raw      string
	segments []segment
}

func (EmptyField) Raw() string      { return "" }
func (f PathField) Raw() string     { return f.raw }
func (f TemplateField) Raw() string { return f.raw }

func (EmptyField) isField()    {}
func (PathField) isField()     {}
func (TemplateField) isField() {}

// ParseField classifies and parses a raw template value.
func ParseField(raw string) (Field, error) {
	if raw == "" {
		return EmptyField{}, nil
	}
	if !strings.Contains(raw, "{{") {
		return PathField{raw: raw, path: splitPath(raw)}, nil
	}
	segs, err := parseSegments(raw)
	if err != nil {
		return nil, err
	}
	return TemplateField{raw: raw, segments: segs}, nil
}

// splitPath turns a.b[0]["c"] into [a b 0 c].
func splitPath(path string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				cur.WriteString(path[i:])
				i = len(path)
				continue
			}
			inner := strings.Trim(path[i+1:i+end], `"'`)
			out = append(out, inner)
			i += end
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// lookupPath resolves a raw path the way a lodash-style get does: the raw
// string as a direct key wins over the split path.
func lookupPath(data map[string]interface{}, raw string, path []string) (interface{}, bool) {
	if data == nil {
		return nil, false
	}
	if v, ok := data[raw]; ok {
		return v, true
	}
	if len(path) == 0 {
		return nil, false
	}
	var cur interface{} = data
	for _, step := range path {
		next, ok := child(cur, step)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v interface{}, key string) (interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		c, ok := t[key]
		return c, ok
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(t) {
			return nil, false
		}
		return t[idx], true
	case []string:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(t) {
			return nil, false
		}
		return t[idx], true
	}
	return nil, false
}
