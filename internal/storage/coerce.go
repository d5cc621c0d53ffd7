package storage

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceStats converts a decoded JSON stat payload to numeric stats.
// Numbers and numeric strings (".300", "4.50") are kept; placeholders such as
// "-.--", empty strings, nulls and non-finite values are dropped so they read
// as absent rather than zero.
func CoerceStats(raw map[string]any) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for name, v := range raw {
		if f, ok := coerce(v); ok {
			out[name] = f
		}
	}
	return out
}

func coerce(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
