package file

// Value conversions shared by the TOML store and the YAML profile overlay.
// TOML decodes integers as int64, YAML as int; both decode arrays as []any.

func asString(val any) string {
	str, _ := val.(string)
	return str
}

func asInt(val any) int {
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func asFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func asBool(val any) bool {
	b, _ := val.(bool)
	return b
}

func asStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}
