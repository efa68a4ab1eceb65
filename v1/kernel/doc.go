// Package kernel is the function registry and dispatcher that chat
// connectors use for tool calling.
//
// A Kernel holds plugins (named groups of functions), AI services and two
// kinds of filters. Functions are advertised to models under their fully
// qualified name "plugin-function"; when a model asks for a call, the
// kernel parses the arguments, validates them against the function
// metadata and runs the function through the filter chain.
//
// Native functions are built from typed Go functions. The parameter schema
// is reflected from the input struct:
//
//	type weatherInput struct {
//	    City string `json:"city" jsonschema:"description=city name"`
//	    Unit string `json:"unit,omitempty" jsonschema:"enum=c,enum=f"`
//	}
//
//	weather := kernel.MustFunction("get_weather", "Returns the current weather",
//	    func(ctx context.Context, in weatherInput) (string, error) {
//	        return lookup(ctx, in.City, in.Unit)
//	    })
//
//	k, err := kernel.New(kernel.WithPlugins(kernel.MustPlugin("weather", "", weather)))
//
// FunctionChoiceBehavior decides which functions a request advertises and
// whether the calls are executed automatically:
//
//	settings := &kernel.PromptExecutionSettings{
//	    FunctionChoiceBehavior: kernel.Auto(true, nil),
//	}
//
// Auto-function filters see every model-requested call and can stop the
// auto-invoke loop by setting Terminate:
//
//	k.AddAutoFunctionInvocationFilter(func(ctx context.Context, ac *kernel.AutoFunctionInvocationContext,
//	    next func(context.Context, *kernel.AutoFunctionInvocationContext) error) error {
//	    if err := next(ctx, ac); err != nil {
//	        return err
//	    }
//	    ac.Terminate = ac.Function.Metadata().Name == "final_answer"
//	    return nil
//	})
//
// Errors that a model can correct (malformed JSON arguments, unknown
// function names, missing required arguments, failing functions) are not
// returned to the caller. They become the function result text so the
// model can retry.
package kernel
