package estimator

import "fmt"

// Parameter accessors for SetParams implementations. Numeric YAML and grid
// values arrive as int, int64 or float64 depending on the source, so the
// integer accessor accepts all three.

func IntParam(params map[string]any, key string, def int) (int, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", key, val)
	}
}

func FloatParam(params map[string]any, key string, def float64) (float64, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", key, val)
	}
}

func StringParam(params map[string]any, key string, def string) (string, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: expected string, got %T", key, val)
	}
	return s, nil
}
