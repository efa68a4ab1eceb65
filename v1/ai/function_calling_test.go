package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// scriptedModel answers requests with the function at the request position,
// repeating the last one.
type scriptedModel struct {
	mu       sync.Mutex
	script   []func(req *ChatRequest) *contents.ChatMessageContent
	requests []*ChatRequest
	lengths  []int
}

func (m *scriptedModel) ServiceID() string { return "scripted" }
func (m *scriptedModel) ModelID() string   { return "scripted-model" }

func (m *scriptedModel) next(req *ChatRequest) *contents.ChatMessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := min(len(m.requests), len(m.script)-1)
	m.requests = append(m.requests, req)
	m.lengths = append(m.lengths, req.History.Len())
	return m.script[i](req)
}

func (m *scriptedModel) Complete(ctx context.Context, req *ChatRequest) ([]*contents.ChatMessageContent, error) {
	return []*contents.ChatMessageContent{m.next(req)}, nil
}

func (m *scriptedModel) CompleteStream(ctx context.Context, req *ChatRequest, handler StreamHandler) error {
	msg := m.next(req)
	for _, item := range msg.Items {
		chunk := &contents.StreamingChatMessageContent{Role: contents.RoleAssistant}
		switch v := item.(type) {
		case *contents.TextContent:
			// split text to exercise merging
			half := len(v.Text) / 2
			if err := handler(&contents.StreamingChatMessageContent{Items: []contents.Item{&contents.TextContent{Text: v.Text[:half]}}}); err != nil {
				return err
			}
			chunk.Items = []contents.Item{&contents.TextContent{Text: v.Text[half:]}}
		case *contents.FunctionCallContent:
			head := *v
			head.Arguments = ""
			if err := handler(&contents.StreamingChatMessageContent{Items: []contents.Item{&head}}); err != nil {
				return err
			}
			chunk.Items = []contents.Item{&contents.FunctionCallContent{Index: v.Index, Arguments: v.Arguments}}
		}
		if err := handler(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (m *scriptedModel) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func text(s string) func(*ChatRequest) *contents.ChatMessageContent {
	return func(*ChatRequest) *contents.ChatMessageContent {
		return contents.NewTextMessage(contents.RoleAssistant, s)
	}
}

func calls(fqns ...string) func(*ChatRequest) *contents.ChatMessageContent {
	return func(*ChatRequest) *contents.ChatMessageContent {
		msg := &contents.ChatMessageContent{Role: contents.RoleAssistant, FinishReason: contents.FinishReasonToolCalls}
		for i, fqn := range fqns {
			call := contents.NewFunctionCall(fmt.Sprintf("call_%d", i), fqn, `{"a": 1, "b": 2}`)
			call.Index = i
			msg.Items = append(msg.Items, call)
		}
		return msg
	}
}

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func testKernel(t *testing.T, opts ...kernel.Option) *kernel.Kernel {
	t.Helper()
	add := kernel.MustFunction("add", "Adds", func(ctx context.Context, in addInput) (int, error) {
		return in.A + in.B, nil
	})
	// slow finishes after fast so completion order differs from call order
	slow := kernel.MustFunction("slow", "", func(ctx context.Context, in addInput) (string, error) {
		time.Sleep(30 * time.Millisecond)
		return "slow", nil
	})
	fast := kernel.MustFunction("fast", "", func(ctx context.Context, in addInput) (string, error) {
		return "fast", nil
	})
	k, err := kernel.New(append([]kernel.Option{
		kernel.WithPlugins(kernel.MustPlugin("math", "", add, slow, fast)),
	}, opts...)...)
	require.NoError(t, err)
	return k
}

func autoSettings() *kernel.PromptExecutionSettings {
	return &kernel.PromptExecutionSettings{FunctionChoiceBehavior: kernel.Auto(true, nil)}
}

func TestLoopReturnsWhenNoFunctionCalls(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{text("hello")}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("hi")
	messages, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), testKernel(t))
	require.NoError(t, err)

	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content())
	assert.Equal(t, 1, model.count())
	assert.Equal(t, 1, history.Len())
}

func TestLoopInvokesFunctionsAndRequestsAgain(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{
		calls("math-add"),
		text("the answer is 3"),
	}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("1+2?")
	messages, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), testKernel(t))
	require.NoError(t, err)

	assert.Equal(t, "the answer is 3", messages[0].Content())
	assert.Equal(t, 2, model.count())
	assert.Equal(t, []int{1, 3}, model.lengths)

	msgs := history.Messages()
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].FunctionCalls(), 1)
	assert.Equal(t, contents.RoleTool, msgs[2].Role)
	assert.Equal(t, "3", msgs[2].FunctionResults()[0].String())

	first := model.requests[0]
	require.NotNil(t, first.Tools)
	assert.Equal(t, kernel.FunctionChoiceAuto, first.Tools.Choice)
	assert.Len(t, first.Tools.Functions, 3)
}

func TestLoopExhaustsAttemptsThenDisablesTools(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{calls("math-add")}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("loop forever")
	_, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), testKernel(t))
	require.NoError(t, err)

	require.Equal(t, kernel.DefaultMaximumAutoInvokeAttempts+1, model.count())
	for i := 0; i < kernel.DefaultMaximumAutoInvokeAttempts; i++ {
		assert.NotNil(t, model.requests[i].Tools, "request %d", i)
		assert.Equal(t, i, model.requests[i].RequestIndex)
	}
	last := model.requests[kernel.DefaultMaximumAutoInvokeAttempts]
	assert.Nil(t, last.Tools)
	assert.Nil(t, last.Settings.FunctionChoiceBehavior)
}

func TestLoopRequiredInvokesOnce(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{calls("math-add"), text("done")}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("add")
	settings := &kernel.PromptExecutionSettings{FunctionChoiceBehavior: kernel.Required(true, nil, "math-add")}
	messages, err := client.GetChatMessageContents(context.Background(), history, settings, testKernel(t))
	require.NoError(t, err)

	assert.Equal(t, "done", messages[0].Content())
	require.Equal(t, 2, model.count())
	assert.Equal(t, kernel.FunctionChoiceRequired, model.requests[0].Tools.Choice)
	assert.Nil(t, model.requests[1].Tools)
}

func TestLoopPreservesCallOrderWithConcurrentInvocation(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{
		calls("math-slow", "math-fast", "math-add"),
		text("ok"),
	}}
	client := NewFunctionCallingClient(model, WithConfig(Config{MaxParallelFunctionCalls: 3}))

	settings := autoSettings()
	settings.FunctionChoiceBehavior.Options.AllowConcurrentInvocation = true

	history := contents.NewChatHistory("")
	history.AddUserMessage("go")
	_, err := client.GetChatMessageContents(context.Background(), history, settings, testKernel(t))
	require.NoError(t, err)

	msgs := history.Messages()
	require.Len(t, msgs, 5)
	var got []string
	for _, m := range msgs[2:] {
		r := m.FunctionResults()[0]
		got = append(got, r.CallID+"="+r.String())
	}
	assert.Equal(t, []string{"call_0=slow", "call_1=fast", "call_2=3"}, got)
}

func TestLoopTerminatesFromFilter(t *testing.T) {
	k := testKernel(t, kernel.WithAutoFunctionInvocationFilter(
		func(ctx context.Context, ac *kernel.AutoFunctionInvocationContext, next func(context.Context, *kernel.AutoFunctionInvocationContext) error) error {
			if err := next(ctx, ac); err != nil {
				return err
			}
			ac.Terminate = ac.Function.Metadata().Name == "fast"
			return nil
		},
	))
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{calls("math-add", "math-fast")}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("go")
	messages, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), k)
	require.NoError(t, err)

	assert.Equal(t, 1, model.count())
	require.Len(t, messages, 1)
	assert.Equal(t, contents.RoleTool, messages[0].Role)
	results := messages[0].FunctionResults()
	require.Len(t, results, 2)
	assert.Equal(t, "3", results[0].String())
	assert.Equal(t, "fast", results[1].String())
}

func TestLoopFeedsErrorsBackToModel(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{
		calls("math-missing"),
		text("sorry"),
	}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("go")
	_, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), testKernel(t))
	require.NoError(t, err)

	tool := history.Messages()[2]
	assert.Equal(t, fmt.Sprintf(kernel.FunctionNotFoundMessage, "math-missing"), tool.FunctionResults()[0].String())
}

func TestLoopRejectsInvalidSettings(t *testing.T) {
	client := NewFunctionCallingClient(&scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{text("x")}})
	history := contents.NewChatHistory("")

	_, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), nil)
	assert.ErrorIs(t, err, ErrInvalidExecutionSettings)

	settings := autoSettings()
	settings.NumberOfResponses = 2
	_, err = client.GetChatMessageContents(context.Background(), history, settings, testKernel(t))
	assert.ErrorIs(t, err, ErrInvalidExecutionSettings)

	_, err = client.GetChatMessageContents(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLoopWithoutKernelAdvertisesNothing(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{calls("math-add")}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("go")
	messages, err := client.GetChatMessageContents(context.Background(), history, nil, nil)
	require.NoError(t, err)

	assert.Nil(t, model.requests[0].Tools)
	assert.Len(t, messages[0].FunctionCalls(), 1)
	assert.Equal(t, 1, history.Len())
}

func TestLoopHooksAndObserver(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{calls("math-add"), text("ok")}}
	var before, after, observed atomic.Int32
	client := NewFunctionCallingClient(model,
		WithHooks(ChatHooks{
			BeforeRequest: func(ctx context.Context, req *ChatRequest) { before.Add(1) },
			AfterResponse: func(ctx context.Context, messages []*contents.ChatMessageContent) { after.Add(1) },
		}),
		WithObserver(observability.ObserverFunc(func(ctx observability.OperationContext) {
			assert.Equal(t, "ai", ctx.Component)
			assert.Equal(t, "scripted-model", ctx.Resource)
			observed.Add(1)
		})),
	)

	history := contents.NewChatHistory("")
	history.AddUserMessage("go")
	_, err := client.GetChatMessageContents(context.Background(), history, autoSettings(), testKernel(t))
	require.NoError(t, err)

	assert.EqualValues(t, 2, before.Load())
	assert.EqualValues(t, 2, after.Load())
	assert.EqualValues(t, 2, observed.Load())
}

func TestStreamingLoop(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{
		calls("math-add"),
		text("three"),
	}}
	client := NewFunctionCallingClient(model)

	history := contents.NewChatHistory("")
	history.AddUserMessage("1+2?")

	var chunks []*contents.StreamingChatMessageContent
	err := client.GetStreamingChatMessageContents(context.Background(), history, autoSettings(), testKernel(t),
		func(chunk *contents.StreamingChatMessageContent) error {
			chunks = append(chunks, chunk)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 2, model.count())
	assert.Equal(t, "three", contents.Merge(chunks[len(chunks)-2:]...).Content())

	msgs := history.Messages()
	require.Len(t, msgs, 3)
	call := msgs[1].FunctionCalls()[0]
	assert.Equal(t, "call_0", call.ID)
	assert.Equal(t, `{"a": 1, "b": 2}`, call.Arguments)
	assert.Equal(t, "3", msgs[2].FunctionResults()[0].String())
}

func TestStreamingHandlerErrorStops(t *testing.T) {
	model := &scriptedModel{script: []func(*ChatRequest) *contents.ChatMessageContent{text("abc")}}
	client := NewFunctionCallingClient(model)
	boom := errors.New("client gone")

	history := contents.NewChatHistory("")
	history.AddUserMessage("go")
	err := client.GetStreamingChatMessageContents(context.Background(), history, nil, nil,
		func(*contents.StreamingChatMessageContent) error { return boom })
	assert.ErrorIs(t, err, boom)
}
