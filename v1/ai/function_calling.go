package ai

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

const instrumentationName = "github.com/Aleph-Alpha/connectors/v1/ai"

// Logger is the logging contract of this package.
//
//go:generate mockgen -source=function_calling.go -destination=mock_logger.go -package=ai
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}
func (nopLogger) Fatal(string, error, ...map[string]interface{}) {}

// ChatHooks run around every model request of the loop.
type ChatHooks struct {
	// BeforeRequest may modify the request, e.g. to reduce the history.
	BeforeRequest func(ctx context.Context, req *ChatRequest)

	// AfterResponse sees the returned messages before the loop acts on them.
	AfterResponse func(ctx context.Context, messages []*contents.ChatMessageContent)
}

// FunctionCallingClient turns a ChatModel into a ChatCompletion by running
// the function-calling loop: request, invoke the requested functions,
// append the results, request again.
type FunctionCallingClient struct {
	model    ChatModel
	cfg      Config
	hooks    ChatHooks
	logger   Logger
	observer observability.Observer
	tracer   trace.Tracer
}

// ClientOption configures a FunctionCallingClient.
type ClientOption func(*FunctionCallingClient)

func WithConfig(cfg Config) ClientOption {
	return func(c *FunctionCallingClient) { c.cfg = cfg }
}

func WithHooks(hooks ChatHooks) ClientOption {
	return func(c *FunctionCallingClient) { c.hooks = hooks }
}

func WithLogger(logger Logger) ClientOption {
	return func(c *FunctionCallingClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(observer observability.Observer) ClientOption {
	return func(c *FunctionCallingClient) { c.observer = observer }
}

// NewFunctionCallingClient wraps model.
//
// Example:
//
//	model, _ := openai.NewChatModel(cfg, log)
//	chat := ai.NewFunctionCallingClient(model, ai.WithLogger(log))
//	k.AddService(chat, false)
func NewFunctionCallingClient(model ChatModel, opts ...ClientOption) *FunctionCallingClient {
	c := &FunctionCallingClient{
		model:  model,
		logger: nopLogger{},
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FunctionCallingClient) ServiceID() string { return c.model.ServiceID() }
func (c *FunctionCallingClient) ModelID() string   { return c.model.ModelID() }

// Model returns the wrapped ChatModel.
func (c *FunctionCallingClient) Model() ChatModel { return c.model }

// GetChatMessageContents runs the loop. See ChatCompletion.
func (c *FunctionCallingClient) GetChatMessageContents(ctx context.Context, history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel) ([]*contents.ChatMessageContent, error) {
	settings, err := c.prepare(history, settings, k)
	if err != nil {
		return nil, err
	}
	ctx, span := c.tracer.Start(ctx, "ai.chat_completion", trace.WithAttributes(
		attribute.String("ai.model", c.ModelID()),
	))
	defer span.End()

	messages, err := c.run(ctx, history, settings, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return messages, err
}

func (c *FunctionCallingClient) run(ctx context.Context, history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel) ([]*contents.ChatMessageContent, error) {
	behavior := settings.FunctionChoiceBehavior
	if behavior == nil || !behavior.AutoInvoke {
		tools, err := behavior.Configure(k)
		if err != nil {
			return nil, err
		}
		return c.complete(ctx, &ChatRequest{History: history, Settings: settings, Tools: tools})
	}

	attempts := behavior.Attempts()
	for requestIndex := 0; requestIndex < attempts; requestIndex++ {
		tools, err := behavior.Configure(k)
		if err != nil {
			return nil, err
		}
		messages, err := c.complete(ctx, &ChatRequest{
			History:      history,
			Settings:     settings,
			Tools:        tools,
			RequestIndex: requestIndex,
		})
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			return messages, nil
		}
		calls := messages[0].FunctionCalls()
		if len(calls) == 0 {
			return messages, nil
		}

		c.logger.Debug("processing function calls", nil, map[string]interface{}{
			"request_index": requestIndex,
			"calls":         len(calls),
		})
		history.AddMessage(messages[0])

		terminate, err := c.invokeCalls(ctx, k, history, calls, tools, behavior, requestIndex, false)
		if err != nil {
			return nil, err
		}
		if terminate {
			c.logger.Debug("function invocation loop terminated by filter", nil, map[string]interface{}{
				"request_index": requestIndex,
			})
			return []*contents.ChatMessageContent{contents.MergeToolMessages(history.Last(len(calls)))}, nil
		}
	}

	c.logger.Debug("maximum auto invoke attempts reached, requesting without tools", nil, map[string]interface{}{
		"attempts": attempts,
	})
	return c.complete(ctx, &ChatRequest{
		History:      history,
		Settings:     withoutTools(settings),
		RequestIndex: attempts,
	})
}

// GetStreamingChatMessageContents runs the loop on the streaming API. All
// chunks of all rounds reach handler; function-call deltas of choice 0
// are accumulated to decide whether another round is needed.
func (c *FunctionCallingClient) GetStreamingChatMessageContents(ctx context.Context, history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel, handler StreamHandler) error {
	settings, err := c.prepare(history, settings, k)
	if err != nil {
		return err
	}
	ctx, span := c.tracer.Start(ctx, "ai.chat_completion_stream", trace.WithAttributes(
		attribute.String("ai.model", c.ModelID()),
	))
	defer span.End()

	if err := c.runStream(ctx, history, settings, k, handler); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *FunctionCallingClient) runStream(ctx context.Context, history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel, handler StreamHandler) error {
	behavior := settings.FunctionChoiceBehavior
	if behavior == nil || !behavior.AutoInvoke {
		tools, err := behavior.Configure(k)
		if err != nil {
			return err
		}
		_, err = c.completeStream(ctx, &ChatRequest{History: history, Settings: settings, Tools: tools}, handler)
		return err
	}

	attempts := behavior.Attempts()
	for requestIndex := 0; requestIndex < attempts; requestIndex++ {
		tools, err := behavior.Configure(k)
		if err != nil {
			return err
		}
		message, err := c.completeStream(ctx, &ChatRequest{
			History:      history,
			Settings:     settings,
			Tools:        tools,
			RequestIndex: requestIndex,
		}, handler)
		if err != nil {
			return err
		}
		calls := message.FunctionCalls()
		if len(calls) == 0 {
			return nil
		}
		history.AddMessage(message)

		terminate, err := c.invokeCalls(ctx, k, history, calls, tools, behavior, requestIndex, true)
		if err != nil {
			return err
		}
		if terminate {
			return nil
		}
	}

	_, err := c.completeStream(ctx, &ChatRequest{
		History:      history,
		Settings:     withoutTools(settings),
		RequestIndex: attempts,
	}, handler)
	return err
}

func (c *FunctionCallingClient) prepare(history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel) (*kernel.PromptExecutionSettings, error) {
	if history == nil {
		return nil, fmt.Errorf("%w: chat history is required", ErrInvalidRequest)
	}
	settings = settings.Clone()
	behavior := settings.FunctionChoiceBehavior
	if behavior == nil || !behavior.AutoInvoke {
		return settings, nil
	}
	if k == nil {
		return nil, fmt.Errorf("%w: auto-invoke requires a kernel", ErrInvalidExecutionSettings)
	}
	if settings.ResponseCount() > 1 {
		return nil, fmt.Errorf("%w: auto-invoke supports a single response, got %d", ErrInvalidExecutionSettings, settings.NumberOfResponses)
	}
	return settings, nil
}

// invokeCalls executes calls and appends their results to history in call
// order. It reports whether a filter asked to terminate the loop.
func (c *FunctionCallingClient) invokeCalls(ctx context.Context, k *kernel.Kernel, history *contents.ChatHistory, calls []*contents.FunctionCallContent, tools *kernel.FunctionChoiceConfiguration, behavior *kernel.FunctionChoiceBehavior, requestIndex int, streaming bool) (bool, error) {
	allowed := make([]string, 0)
	if tools != nil {
		for _, m := range tools.Functions {
			allowed = append(allowed, m.FullyQualifiedName())
		}
	}

	results := make([]*contents.FunctionResultContent, len(calls))
	invocations := make([]*kernel.AutoFunctionInvocationContext, len(calls))
	execute := func(ctx context.Context, i int) error {
		result, ac, err := k.ExecuteFunctionCall(ctx, calls[i], history, kernel.FunctionCallOptions{
			AllowedFunctions:      allowed,
			RequestSequenceIndex:  requestIndex,
			FunctionSequenceIndex: i,
			FunctionCount:         len(calls),
			IsStreaming:           streaming,
		})
		results[i] = result
		invocations[i] = ac
		return err
	}

	if behavior.Options.AllowConcurrentInvocation && len(calls) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.maxParallel())
		for i := range calls {
			g.Go(func() error { return execute(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return false, err
		}
	} else {
		for i := range calls {
			if err := execute(ctx, i); err != nil {
				return false, err
			}
		}
	}

	terminate := false
	for i, result := range results {
		history.AddToolMessage(result)
		if invocations[i] != nil && invocations[i].Terminate {
			terminate = true
		}
	}
	return terminate, nil
}

func (c *FunctionCallingClient) complete(ctx context.Context, req *ChatRequest) ([]*contents.ChatMessageContent, error) {
	if c.hooks.BeforeRequest != nil {
		c.hooks.BeforeRequest(ctx, req)
	}

	start := time.Now()
	messages, err := c.model.Complete(ctx, req)
	c.observeOperation("chat_completion", time.Since(start), err, usageOf(messages...), req.RequestIndex)
	if err != nil {
		return nil, err
	}

	if c.hooks.AfterResponse != nil {
		c.hooks.AfterResponse(ctx, messages)
	}
	return messages, nil
}

// completeStream forwards every chunk to handler and returns the merged
// message of choice 0.
func (c *FunctionCallingClient) completeStream(ctx context.Context, req *ChatRequest, handler StreamHandler) (*contents.ChatMessageContent, error) {
	if c.hooks.BeforeRequest != nil {
		c.hooks.BeforeRequest(ctx, req)
	}

	start := time.Now()
	acc := contents.NewAccumulator()
	err := c.model.CompleteStream(ctx, req, func(chunk *contents.StreamingChatMessageContent) error {
		if chunk.ChoiceIndex == 0 {
			acc.Add(chunk)
		}
		if handler == nil {
			return nil
		}
		return handler(chunk)
	})
	message := acc.Message()
	c.observeOperation("chat_completion_stream", time.Since(start), err, usageOf(message), req.RequestIndex)
	if err != nil {
		return nil, err
	}

	if c.hooks.AfterResponse != nil {
		c.hooks.AfterResponse(ctx, []*contents.ChatMessageContent{message})
	}
	return message, nil
}

// withoutTools is the settings of the final request once the attempts are
// used up: the model must answer in text.
func withoutTools(settings *kernel.PromptExecutionSettings) *kernel.PromptExecutionSettings {
	out := settings.Clone()
	out.FunctionChoiceBehavior = nil
	out.ParallelToolCalls = nil
	return out
}

func usageOf(messages ...*contents.ChatMessageContent) int64 {
	var total int64
	for _, m := range messages {
		if m != nil && m.Usage != nil {
			total += int64(m.Usage.TotalTokens())
		}
	}
	return total
}

// observeOperation notifies the observer about an operation if one is configured.
func (c *FunctionCallingClient) observeOperation(operation string, duration time.Duration, err error, tokens int64, requestIndex int) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component: "ai",
		Operation: operation,
		Resource:  c.ModelID(),
		Duration:  duration,
		Error:     err,
		Size:      tokens,
		Metadata: map[string]interface{}{
			"request_index": requestIndex,
		},
	})
}
