package kernel

import (
	"context"
	"regexp"
)

var nameRegex = regexp.MustCompile(`^[0-9A-Za-z_]+$`)

// Function is anything the kernel can invoke: native Go functions, prompt
// functions, search functions.
//
// Invoke is the raw call. Callers go through Kernel.Invoke so that the
// function-invocation filters run.
type Function interface {
	Metadata() *FunctionMetadata
	Invoke(ctx context.Context, k *Kernel, args Arguments) (*FunctionResult, error)
}

// StreamingFunction is a Function that can emit partial results.
type StreamingFunction interface {
	Function
	InvokeStream(ctx context.Context, k *Kernel, args Arguments, handler func(chunk any) error) error
}

// boundFunction is a function registered in a plugin. It carries a copy
// of the metadata with the plugin name set, so one Function value can be
// added to several plugins.
type boundFunction struct {
	Function
	meta *FunctionMetadata
}

func bind(fn Function, pluginName string) *boundFunction {
	if b, ok := fn.(*boundFunction); ok {
		fn = b.Function
	}
	meta := fn.Metadata().clone()
	meta.PluginName = pluginName
	return &boundFunction{Function: fn, meta: meta}
}

func (b *boundFunction) Metadata() *FunctionMetadata { return b.meta }

func (b *boundFunction) Invoke(ctx context.Context, k *Kernel, args Arguments) (*FunctionResult, error) {
	res, err := b.Function.Invoke(ctx, k, args)
	if res != nil {
		res.Function = b.meta
	}
	return res, err
}

func (b *boundFunction) InvokeStream(ctx context.Context, k *Kernel, args Arguments, handler func(chunk any) error) error {
	if s, ok := b.Function.(StreamingFunction); ok {
		return s.InvokeStream(ctx, k, args, handler)
	}
	res, err := b.Invoke(ctx, k, args)
	if err != nil {
		return err
	}
	return handler(res.Value)
}
