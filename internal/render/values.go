// internal/render/values.go
package render

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case momentValue:
		return true
	}
	return true
}

func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// stringify renders a value the way string interpolation does; null is empty.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64, float32, int, int64, int32, json.Number:
		f, _ := toNumber(t)
		return formatNumber(f)
	case []interface{}:
		return joinValues(t, ",")
	case []string:
		return strings.Join(t, ",")
	case time.Time:
		return t.Format(time.RFC3339)
	case momentValue:
		return t.String()
	case map[string]interface{}:
		return "[object Object]"
	}
	return ""
}

func joinValues(items []interface{}, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = stringify(item)
	}
	return strings.Join(parts, sep)
}

// flatten joins list values with a comma and passes everything else through.
func flatten(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		return joinValues(t, ",")
	case []string:
		return strings.Join(t, ",")
	}
	return v
}

func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := a.(float64); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
	}
	if bn, ok := b.(float64); ok {
		if an, ok := toNumber(a); ok {
			return an == bn
		}
	}
	switch at := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && at == bs
	case bool:
		bb, ok := b.(bool)
		return ok && at == bb
	}
	return stringify(a) == stringify(b)
}
