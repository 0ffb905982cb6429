package ir

// Variable is a named reference into the executor's runtime variable
// pool. It may appear anywhere a concrete value is expected inside
// instruction parameters and is resolved only during execution.
type Variable struct {
	Name string
}

// StringFormat is a template string resolved by substitution at
// execution time. Each name in Variables corresponds to a {name}
// marker in the template.
type StringFormat struct {
	Template  string
	Variables []string
}
