package kernel

import (
	"fmt"
	"strings"
)

// Plugin is a named group of functions.
type Plugin struct {
	Name        string
	Description string

	functions []*boundFunction
	index     map[string]int
}

// NewPlugin creates a plugin and adds fns to it.
func NewPlugin(name, description string, fns ...Function) (*Plugin, error) {
	if !nameRegex.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPluginName, name)
	}
	p := &Plugin{
		Name:        name,
		Description: description,
		index:       map[string]int{},
	}
	if err := p.AddFunction(fns...); err != nil {
		return nil, err
	}
	return p, nil
}

// MustPlugin is NewPlugin that panics on error.
func MustPlugin(name, description string, fns ...Function) *Plugin {
	p, err := NewPlugin(name, description, fns...)
	if err != nil {
		panic(err)
	}
	return p
}

// AddFunction registers fns. Names are unique per plugin, case-insensitively.
func (p *Plugin) AddFunction(fns ...Function) error {
	for _, fn := range fns {
		name := fn.Metadata().Name
		if !nameRegex.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
		}
		key := strings.ToLower(name)
		if _, ok := p.index[key]; ok {
			return fmt.Errorf("%w: %s-%s", ErrFunctionExists, p.Name, name)
		}
		p.index[key] = len(p.functions)
		p.functions = append(p.functions, bind(fn, p.Name))
	}
	return nil
}

// Get looks a function up by name, ignoring case.
func (p *Plugin) Get(name string) (Function, bool) {
	i, ok := p.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return p.functions[i], true
}

// Functions returns the functions in registration order.
func (p *Plugin) Functions() []Function {
	out := make([]Function, len(p.functions))
	for i, f := range p.functions {
		out[i] = f
	}
	return out
}

// Metadata returns the metadata of every function in order.
func (p *Plugin) Metadata() []*FunctionMetadata {
	out := make([]*FunctionMetadata, len(p.functions))
	for i, f := range p.functions {
		out[i] = f.meta
	}
	return out
}

func (p *Plugin) Len() int { return len(p.functions) }
