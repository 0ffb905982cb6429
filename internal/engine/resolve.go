package engine

import (
	"fmt"
	"strings"

	"github.com/wharfctl/wharf/internal/ir"
)

// UnresolvedValueError reports a pending deferred value that escaped
// the build stage and reached execution. It is always fatal: the build
// pipeline failed to uphold its postcondition, so there is nothing to
// retry.
type UnresolvedValueError struct {
	Key    string
	Value  any
	Method string
}

func (e *UnresolvedValueError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("unresolved value for parameter %q of method %q: %v", e.Key, e.Method, e.Value)
	}
	return fmt.Sprintf("unresolved value for parameter %q: %v", e.Key, e.Value)
}

// deferredValue is the untyped view of a model.Deferred field, however
// it was instantiated.
type deferredValue interface {
	Pending() bool
	Any() any
}

// resolveValue recursively resolves one parameter value against the
// variable pool: bare variables are looked up, string formats are
// substituted, containers are walked element by element, and literals
// pass through unchanged. key names the parameter being resolved, for
// error reporting.
func resolveValue(key string, value any, pool map[string]any) (any, error) {
	switch v := value.(type) {
	case ir.Variable:
		resolved, ok := pool[v.Name]
		if !ok {
			return nil, fmt.Errorf("reference to undefined variable %q", v.Name)
		}
		return resolved, nil

	case ir.StringFormat:
		return formatString(v, pool)

	case map[string]any:
		resolved := make(map[string]any, len(v))
		for k, elem := range v {
			r, err := resolveValue(k, elem, pool)
			if err != nil {
				return nil, err
			}
			resolved[k] = r
		}
		return resolved, nil

	case []any:
		resolved := make([]any, len(v))
		for i, elem := range v {
			r, err := resolveValue(key, elem, pool)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil

	default:
		if d, ok := value.(deferredValue); ok {
			if d.Pending() {
				return nil, &UnresolvedValueError{Key: key, Value: value}
			}
			return d.Any(), nil
		}
		return value, nil
	}
}

// formatString substitutes {name} markers for the format's declared
// variables in a single left-to-right pass over the template.
// Substituted output is never rescanned, so a value that itself
// contains a marker stays literal.
func formatString(f ir.StringFormat, pool map[string]any) (string, error) {
	names := make(map[string]bool, len(f.Variables))
	for _, name := range f.Variables {
		names[name] = true
	}

	var out strings.Builder
	rest := f.Template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		width := strings.IndexByte(rest[open:], '}')
		if width < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		name := rest[open+1 : open+width]
		if !names[name] {
			out.WriteString(rest[:open+1])
			rest = rest[open+1:]
			continue
		}
		value, ok := pool[name]
		if !ok {
			return "", fmt.Errorf("reference to undefined variable %q", name)
		}
		out.WriteString(rest[:open])
		fmt.Fprintf(&out, "%v", value)
		rest = rest[open+width+1:]
	}
}

// resolveParams resolves every entry of an instruction's parameter
// map.
func resolveParams(params map[string]any, pool map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(params))
	for key, value := range params {
		r, err := resolveValue(key, value, pool)
		if err != nil {
			return nil, err
		}
		resolved[key] = r
	}
	return resolved, nil
}
