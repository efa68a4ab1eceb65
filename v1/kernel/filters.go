package kernel

import (
	"context"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// FunctionInvocationContext is passed through the function-invocation
// filters around every Kernel.Invoke.
type FunctionInvocationContext struct {
	Function  Function
	Kernel    *Kernel
	Arguments Arguments

	// Result is set by the innermost step. Filters may replace it.
	Result *FunctionResult

	IsStreaming bool
}

// AutoFunctionInvocationContext is passed through the auto-function
// filters around every function call requested by a model.
type AutoFunctionInvocationContext struct {
	Function     Function
	Kernel       *Kernel
	Arguments    Arguments
	Result       *FunctionResult
	ChatHistory  *contents.ChatHistory
	FunctionCall *contents.FunctionCallContent

	// RequestSequenceIndex is the auto-invoke round, FunctionSequenceIndex
	// the position of the call in the model response.
	RequestSequenceIndex  int
	FunctionSequenceIndex int
	FunctionCount         int

	// Terminate stops the auto-invoke loop after the current round.
	Terminate bool

	IsStreaming bool
}

// FunctionInvocationFilter wraps a function invocation. It must call next
// to continue; not calling it skips the function.
type FunctionInvocationFilter func(ctx context.Context, ic *FunctionInvocationContext, next func(context.Context, *FunctionInvocationContext) error) error

// AutoFunctionInvocationFilter wraps a model-requested function call.
// Setting Terminate ends the auto-invoke loop; not calling next skips the
// function and Result is used as is.
type AutoFunctionInvocationFilter func(ctx context.Context, ac *AutoFunctionInvocationContext, next func(context.Context, *AutoFunctionInvocationContext) error) error

// chain builds the call that runs filters in registration order around last.
func chain[C any](filters []func(context.Context, C, func(context.Context, C) error) error, last func(context.Context, C) error) func(context.Context, C) error {
	next := last
	for i := len(filters) - 1; i >= 0; i-- {
		filter, inner := filters[i], next
		next = func(ctx context.Context, c C) error {
			return filter(ctx, c, inner)
		}
	}
	return next
}

func functionFilters(in []FunctionInvocationFilter) []func(context.Context, *FunctionInvocationContext, func(context.Context, *FunctionInvocationContext) error) error {
	out := make([]func(context.Context, *FunctionInvocationContext, func(context.Context, *FunctionInvocationContext) error) error, len(in))
	for i, f := range in {
		out[i] = f
	}
	return out
}

func autoFilters(in []AutoFunctionInvocationFilter) []func(context.Context, *AutoFunctionInvocationContext, func(context.Context, *AutoFunctionInvocationContext) error) error {
	out := make([]func(context.Context, *AutoFunctionInvocationContext, func(context.Context, *AutoFunctionInvocationContext) error) error, len(in))
	for i, f := range in {
		out[i] = f
	}
	return out
}
