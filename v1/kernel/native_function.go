package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// NativeFunction is a Go function exposed to the kernel.
type NativeFunction struct {
	meta   *FunctionMetadata
	invoke func(ctx context.Context, args Arguments) (any, error)
}

// FunctionOption customises the metadata of a native function.
type FunctionOption func(*FunctionMetadata)

// WithReturnDescription documents the return value.
func WithReturnDescription(description string) FunctionOption {
	return func(m *FunctionMetadata) { m.ReturnDescription = description }
}

// NewFunction wraps a typed Go function. In must be a struct: its fields
// become the parameters, their JSON schema is reflected from the type.
// Fields tagged `json:",omitempty"` are optional; descriptions come from
// the `jsonschema:"description=..."` tag.
//
// Example:
//
//	type addInput struct {
//	    A int `json:"a" jsonschema:"description=first operand"`
//	    B int `json:"b" jsonschema:"description=second operand"`
//	}
//
//	add, err := kernel.NewFunction("add", "Adds two numbers",
//	    func(ctx context.Context, in addInput) (int, error) { return in.A + in.B, nil })
func NewFunction[In any, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error), opts ...FunctionOption) (*NativeFunction, error) {
	if !nameRegex.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s has no implementation", ErrInvalidFunction, name)
	}

	inType := reflect.TypeOf((*In)(nil)).Elem()
	if inType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s input must be a struct, got %s", ErrInvalidFunction, name, inType.Kind())
	}

	params, err := parametersFromType(inType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFunction, name, err)
	}

	meta := &FunctionMetadata{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
	for _, opt := range opts {
		opt(meta)
	}

	return &NativeFunction{
		meta: meta,
		invoke: func(ctx context.Context, args Arguments) (any, error) {
			var in In
			if len(args) > 0 {
				raw, err := json.Marshal(map[string]any(args))
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
				}
				if err := json.Unmarshal(raw, &in); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
				}
			}
			return fn(ctx, in)
		},
	}, nil
}

// MustFunction is NewFunction for package level registration; it panics
// on invalid input.
func MustFunction[In any, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error), opts ...FunctionOption) *NativeFunction {
	f, err := NewFunction(name, description, fn, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// NewFunctionFromMap wraps an untyped function with explicit parameters.
func NewFunctionFromMap(name, description string, params []ParameterMetadata, fn func(ctx context.Context, args Arguments) (any, error), opts ...FunctionOption) (*NativeFunction, error) {
	if !nameRegex.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFunctionName, name)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s has no implementation", ErrInvalidFunction, name)
	}
	meta := &FunctionMetadata{
		Name:        name,
		Description: description,
		Parameters:  append([]ParameterMetadata(nil), params...),
	}
	for _, opt := range opts {
		opt(meta)
	}
	return &NativeFunction{meta: meta, invoke: fn}, nil
}

func (f *NativeFunction) Metadata() *FunctionMetadata { return f.meta }

func (f *NativeFunction) Invoke(ctx context.Context, _ *Kernel, args Arguments) (*FunctionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := f.invoke(ctx, args)
	if err != nil {
		return nil, err
	}
	return &FunctionResult{Function: f.meta, Value: value}, nil
}

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	Anonymous:      true,
}

// parametersFromType reflects the JSON schema of a struct and splits it
// into one ParameterMetadata per property, keeping field order.
func parametersFromType(t reflect.Type) ([]ParameterMetadata, error) {
	schema := reflector.ReflectFromType(t)
	if schema.Properties == nil {
		return nil, nil
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var params []ParameterMetadata
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		description := prop.Description
		defaultValue := prop.Default

		raw, err := json.Marshal(prop)
		if err != nil {
			return nil, err
		}
		var propSchema map[string]any
		if err := json.Unmarshal(raw, &propSchema); err != nil {
			return nil, err
		}
		delete(propSchema, "description")

		params = append(params, ParameterMetadata{
			Name:        pair.Key,
			Description: description,
			Required:    required[pair.Key],
			Default:     defaultValue,
			Schema:      propSchema,
		})
	}
	return params, nil
}
