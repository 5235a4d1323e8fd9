// Package env holds the variables set while a scenario is evaluated.
package env

// Environment maps variable names to values (bool, string or number) and
// remembers the order in which names were first set. It belongs to a single
// evaluation and is not safe for concurrent use.
type Environment struct {
	names  []string
	values map[string]any
}

// New returns an empty Environment.
func New() *Environment {
	return &Environment{values: make(map[string]any)}
}

// Set assigns value to name. The last write wins.
func (e *Environment) Set(name string, value any) {
	if _, exists := e.values[name]; !exists {
		e.names = append(e.names, name)
	}
	e.values[name] = value
}

// Lookup returns the value of name and whether it has been set.
func (e *Environment) Lookup(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Names returns variable names in the order they were first set.
func (e *Environment) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

func (e *Environment) Len() int {
	return len(e.names)
}

// Map returns a copy of the variables, suitable as template bindings.
func (e *Environment) Map() map[string]any {
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}
