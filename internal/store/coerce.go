package store

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// object is one decoded JSON object with lenient typed accessors. Every
// accessor tolerates a missing key, a null, a wrong type or a non-finite
// number by returning its fallback.
type object map[string]any

func asObject(v any) (object, bool) {
	m, ok := v.(map[string]any)
	return object(m), ok
}

func (o object) child(key string) (object, bool) {
	return asObject(o[key])
}

func (o object) list(key string) []any {
	a, _ := o[key].([]any)
	return a
}

func (o object) num(key string, def float64) float64 {
	if f, ok := toFloat(o[key]); ok {
		return f
	}
	return def
}

func (o object) integer(key string, def int) int {
	if f, ok := toFloat(o[key]); ok && f >= math.MinInt32 && f <= math.MaxInt32 {
		return int(f)
	}
	return def
}

// nonNeg is int clamped at zero.
func (o object) nonNeg(key string) int {
	return max(0, o.integer(key, 0))
}

func (o object) str(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

func (o object) flag(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (o object) when(key string) (time.Time, bool) {
	return toTime(o[key])
}

func (o object) whenPtr(key string) *time.Time {
	if t, ok := o.when(key); ok {
		return &t
	}
	return nil
}

func (o object) strs(key string) []string {
	var out []string
	for _, v := range o.list(key) {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toFloat accepts JSON numbers and numeric strings and rejects NaN/Inf.
func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = x
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toTime reads epoch milliseconds (number or numeric string) or an
// RFC 3339 string, returning local time.
func toTime(v any) (time.Time, bool) {
	if f, ok := toFloat(v); ok {
		if f <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).Local(), true
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.Local(), true
}
