package kernel

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// FunctionCallOptions describe where a model-requested call sits in the
// auto-invoke loop.
type FunctionCallOptions struct {
	// AllowedFunctions are the fully qualified names that were advertised.
	// Nil allows every kernel function.
	AllowedFunctions []string

	RequestSequenceIndex  int
	FunctionSequenceIndex int
	FunctionCount         int
	IsStreaming           bool
}

func (o FunctionCallOptions) allows(fqn string) bool {
	if o.AllowedFunctions == nil {
		return true
	}
	for _, name := range o.AllowedFunctions {
		if strings.EqualFold(name, fqn) {
			return true
		}
	}
	return false
}

// ExecuteFunctionCall runs a function call returned by a model and
// produces the result to send back. Problems the model can fix (malformed
// arguments, unknown functions, missing arguments, function errors) become
// a result text addressed to the model; only context cancellation and
// filter errors are returned as error.
//
// The returned context carries Terminate as set by the auto-function filters.
// history is handed to the filters and is not modified.
func (k *Kernel) ExecuteFunctionCall(ctx context.Context, call *contents.FunctionCallContent, history *contents.ChatHistory, opts FunctionCallOptions) (*contents.FunctionResultContent, *AutoFunctionInvocationContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	fqn := call.FullyQualifiedName()

	parsed, err := call.ParseArguments()
	if err != nil {
		k.logger.Info(fmt.Sprintf("Received invalid arguments for function %s: %v. Trying tool call again.", fqn, err), nil, nil)
		return contents.NewFunctionResult(call, MalformedArgumentsMessage), nil, nil
	}
	args := Arguments(parsed)

	fn, err := k.lookupFunction(call.PluginName, call.FunctionName)
	if err != nil {
		k.logger.Info("function call not found", err, map[string]interface{}{
			"function": fqn,
		})
		return contents.NewFunctionResult(call, fmt.Sprintf(FunctionNotFoundMessage, fqn)), nil, nil
	}
	if !opts.allows(fn.Metadata().FullyQualifiedName()) {
		k.logger.Info("function call not part of the provided tools", nil, map[string]interface{}{
			"function": fqn,
		})
		return contents.NewFunctionResult(call, fmt.Sprintf(FunctionNotFoundMessage, fqn)), nil, nil
	}

	required := fn.Metadata().RequiredParameters()
	if missing := args.Missing(required); len(missing) > 0 {
		k.logger.Info("function call is missing required arguments", nil, map[string]interface{}{
			"function": fqn,
			"missing":  missing,
		})
		return contents.NewFunctionResult(call, fmt.Sprintf(MissingArgumentsMessage, len(required), len(required)-len(missing), required)), nil, nil
	}

	ac := &AutoFunctionInvocationContext{
		Function:              fn,
		Kernel:                k,
		Arguments:             args,
		ChatHistory:           history,
		FunctionCall:          call,
		RequestSequenceIndex:  opts.RequestSequenceIndex,
		FunctionSequenceIndex: opts.FunctionSequenceIndex,
		FunctionCount:         opts.FunctionCount,
		IsStreaming:           opts.IsStreaming,
	}
	run := chain(autoFilters(k.autoFilterSnapshot()), func(ctx context.Context, ac *AutoFunctionInvocationContext) error {
		res, err := k.Invoke(ctx, ac.Function, ac.Arguments)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			k.logger.Warn("function call failed", err, map[string]interface{}{
				"function": fqn,
			})
			ac.Result = &FunctionResult{
				Function: ac.Function.Metadata(),
				Value:    fmt.Sprintf(FunctionErrorMessage, fqn, err),
				Metadata: map[string]any{ResultErrorKey: err},
			}
			return nil
		}
		ac.Result = res
		return nil
	})
	if err := run(ctx, ac); err != nil {
		return nil, ac, err
	}

	var value any
	if ac.Result != nil {
		switch v := ac.Result.Value.(type) {
		case *contents.ChatMessageContent, []*contents.ChatMessageContent:
			value = ac.Result.String()
		default:
			value = v
		}
	}
	return contents.NewFunctionResult(call, value), ac, nil
}

// InvokeFunctionCall is ExecuteFunctionCall followed by appending the
// result to history as a tool message.
func (k *Kernel) InvokeFunctionCall(ctx context.Context, call *contents.FunctionCallContent, history *contents.ChatHistory, opts FunctionCallOptions) (*AutoFunctionInvocationContext, error) {
	result, ac, err := k.ExecuteFunctionCall(ctx, call, history, opts)
	if err != nil {
		return ac, err
	}
	history.AddToolMessage(result)
	return ac, nil
}
