package awsapi

import "fmt"

// Instruction parameters arrive as loosely-typed maps produced by the
// variable resolver; the helpers below pull out the shapes the SDK
// wrappers need and reject anything else as a planner defect.

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: expected string, got %T", key, v)
	}
	return s, nil
}

func optionalStringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func int32Param(params map[string]any, key string) (int32, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return int32(n), nil
	case int32:
		return n, nil
	case int64:
		return int32(n), nil
	case float64:
		return int32(n), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", key, v)
	}
}

func optionalInt32Param(params map[string]any, key string) (*int32, error) {
	if _, ok := params[key]; !ok {
		return nil, nil
	}
	if params[key] == nil {
		return nil, nil
	}
	n, err := int32Param(params, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func stringMapParam(params map[string]any, key string) (map[string]string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, mv := range m {
			s, ok := mv.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q: value for %q is not a string", key, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q: expected string map, got %T", key, v)
	}
}

func stringSliceParam(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch s := v.(type) {
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, sv := range s {
			str, ok := sv.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q: element is not a string", key)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q: expected string list, got %T", key, v)
	}
}

func documentParam(params map[string]any, key string) (map[string]any, error) {
	v, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected document, got %T", key, v)
	}
	return doc, nil
}
