package page

// Safe, type-aware extraction from decoded-JSON prop values. These replace
// bare type assertions that panic on mismatch; model output puts the wrong
// shape in a field often enough that every read has to tolerate it.

// PropString extracts a string prop. Returns "" on absence or mismatch.
func PropString(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	s, _ := props[key].(string)
	return s
}

// PropMap extracts an object prop. Returns nil on absence or mismatch.
func PropMap(props map[string]any, key string) map[string]any {
	if props == nil {
		return nil
	}
	m, _ := props[key].(map[string]any)
	return m
}

// PropList extracts an array prop. Returns nil on absence or mismatch.
func PropList(props map[string]any, key string) []any {
	if props == nil {
		return nil
	}
	l, _ := props[key].([]any)
	return l
}

// PropBool extracts a boolean prop. Returns (value, true) on success.
func PropBool(props map[string]any, key string) (bool, bool) {
	if props == nil {
		return false, false
	}
	b, ok := props[key].(bool)
	return b, ok
}

// PropFloat extracts a numeric prop. JSON numbers decode as float64; ints
// from hand-built maps are accepted too.
func PropFloat(props map[string]any, key string) (float64, bool) {
	if props == nil {
		return 0, false
	}
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
