package langchain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// fakeLLM replays responses in order, repeating the last one, and streams
// the configured chunks when a streaming func is set.
type fakeLLM struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	chunks    []string
	err       error
	messages  [][]llms.MessageContent
	options   []llms.CallOptions
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	f.mu.Lock()
	i := min(len(f.messages), len(f.responses)-1)
	f.messages = append(f.messages, messages)
	f.options = append(f.options, opts)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if opts.StreamingFunc != nil {
		for _, c := range f.chunks {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return f.responses[i], nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func mathKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	add := kernel.MustFunction("add", "Adds two numbers", func(ctx context.Context, in addInput) (int, error) {
		return in.A + in.B, nil
	})
	k, err := kernel.New(kernel.WithPlugins(kernel.MustPlugin("math", "", add)))
	require.NoError(t, err)
	return k
}

func toolCallResponse() *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "math-add", Arguments: `{"a":1,"b":2}`},
		}},
		GenerationInfo: map[string]any{"PromptTokens": 10, "CompletionTokens": 4},
	}}}
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}}}
}

func TestFunctionCallingLoopOverLangchainModel(t *testing.T) {
	llm := &fakeLLM{responses: []*llms.ContentResponse{toolCallResponse(), textResponse("1 + 2 = 3")}}
	model := NewChatModel(llm, "fake", "fake-model")
	client := ai.NewFunctionCallingClient(model)

	history := contents.NewChatHistory("be precise")
	history.AddUserMessage("what is 1 + 2?")
	out, err := client.GetChatMessageContents(context.Background(), history,
		&kernel.PromptExecutionSettings{FunctionChoiceBehavior: kernel.Auto(true, nil)}, mathKernel(t))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "1 + 2 = 3", out[0].Content())

	require.Len(t, llm.messages, 2)

	first := llm.options[0]
	require.Len(t, first.Tools, 1)
	assert.Equal(t, "math-add", first.Tools[0].Function.Name)
	assert.Equal(t, "auto", first.ToolChoice)
	assert.Equal(t, "fake-model", first.Model)

	second := llm.messages[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, second[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, second[1].Role)

	assert.Equal(t, llms.ChatMessageTypeAI, second[2].Role)
	call, ok := second[2].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "math-add", call.FunctionCall.Name)

	assert.Equal(t, llms.ChatMessageTypeTool, second[3].Role)
	result, ok := second[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Equal(t, "3", result.Content)
}

func TestCallOptionsFromSettings(t *testing.T) {
	temp, topP, seed := 0.2, 0.9, 7
	opts := callOptions("default-model", &ai.ChatRequest{
		History: contents.NewChatHistory(""),
		Settings: &kernel.PromptExecutionSettings{
			ModelID:           "override",
			MaxTokens:         128,
			Temperature:       &temp,
			TopP:              &topP,
			Seed:              &seed,
			StopSequences:     []string{"END"},
			NumberOfResponses: 2,
			ResponseFormat:    "json_object",
		},
	})
	var got llms.CallOptions
	for _, o := range opts {
		o(&got)
	}
	assert.Equal(t, "override", got.Model)
	assert.Equal(t, 128, got.MaxTokens)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 0.9, got.TopP)
	assert.Equal(t, 7, got.Seed)
	assert.Equal(t, []string{"END"}, got.StopWords)
	assert.Equal(t, 2, got.CandidateCount)
	assert.True(t, got.JSONMode)
	assert.Empty(t, got.Tools)
}

func TestStreamingForwardsTextThenCalls(t *testing.T) {
	resp := toolCallResponse()
	resp.Choices[0].Content = "checking"
	llm := &fakeLLM{responses: []*llms.ContentResponse{resp}, chunks: []string{"check", "ing"}}
	model := NewChatModel(llm, "fake", "fake-model")

	history := contents.NewChatHistory("")
	history.AddUserMessage("add")
	var chunks []*contents.StreamingChatMessageContent
	err := model.CompleteStream(context.Background(), &ai.ChatRequest{History: history}, func(c *contents.StreamingChatMessageContent) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	msg := contents.Merge(chunks...)
	assert.Equal(t, "checking", msg.Content())
	calls := msg.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "math", calls[0].PluginName)
	assert.Equal(t, `{"a":1,"b":2}`, calls[0].Arguments)
	assert.Equal(t, contents.FinishReasonToolCalls, msg.FinishReason)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, 14, msg.Usage.TotalTokens())
}

func TestGenerateErrorIsWrappedAndLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Error("content generation failed", gomock.Any(), gomock.Any()).Times(1)

	var observed []observability.OperationContext
	observer := observability.ObserverFunc(func(op observability.OperationContext) { observed = append(observed, op) })

	boom := errors.New("boom")
	llm := &fakeLLM{responses: []*llms.ContentResponse{nil}, err: boom}
	model := NewChatModel(llm, "fake", "fake-model", WithLogger(log), WithObserver(observer), WithComponent("ollama"))

	history := contents.NewChatHistory("")
	history.AddUserMessage("hi")
	_, err := model.Complete(context.Background(), &ai.ChatRequest{History: history})
	require.ErrorIs(t, err, ErrGenerateFailed)
	require.ErrorIs(t, err, boom)

	require.Len(t, observed, 1)
	assert.Equal(t, "ollama", observed[0].Component)
	assert.Equal(t, "chat_completion", observed[0].Operation)
}

func TestEmptyChoices(t *testing.T) {
	llm := &fakeLLM{responses: []*llms.ContentResponse{{}}}
	history := contents.NewChatHistory("")
	history.AddUserMessage("hi")
	_, err := NewChatModel(llm, "fake", "m").Complete(context.Background(), &ai.ChatRequest{History: history})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type fakeEmbedder struct{ dims int }

func (f fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = make([]float32, f.dims)
		out[i][0] = float32(len(t))
	}
	return out, nil
}

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedDocuments(ctx, []string{text})
	return v[0], err
}

func TestEmbeddingGenerator(t *testing.T) {
	g := NewEmbeddingGenerator(fakeEmbedder{dims: 3}, "fake_embedding", "fake-embed")
	assert.Equal(t, "fake_embedding", g.ServiceID())

	vectors, err := g.GenerateEmbeddings(context.Background(), []string{"a", "abc"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])

	vectors, err = g.GenerateEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func historyWithCall() *contents.ChatHistory {
	history := contents.NewChatHistory("be brief")
	history.AddUserMessage("add 1 and 2")
	call := contents.NewFunctionCall("c1", "math-add", `{"a":1,"b":2}`)
	history.AddMessage(&contents.ChatMessageContent{Role: contents.RoleAssistant, Items: []contents.Item{call}})
	history.AddToolMessage(contents.NewFunctionResult(call, 3))
	return history
}

func TestTextHistoryModeUsesSingleTextPart(t *testing.T) {
	messages, err := toMessages(historyWithCall().Messages(), HistoryText)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for _, m := range messages {
		require.Len(t, m.Parts, 1)
		_, ok := m.Parts[0].(llms.TextContent)
		assert.True(t, ok)
	}
	assert.Equal(t, llms.TextPart(`[call c1 math-add({"a":1,"b":2})]`), messages[2].Parts[0])
	assert.Equal(t, llms.TextPart("[result c1 math-add] 3"), messages[3].Parts[0])
}

func TestPromptHistoryModeRendersConversation(t *testing.T) {
	messages, err := toMessages(historyWithCall().Messages(), HistoryPrompt)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[0].Role)
	assert.Equal(t, llms.TextPart("system: be brief\n"+
		"user: add 1 and 2\n"+
		`assistant: [call c1 math-add({"a":1,"b":2})]`+"\n"+
		"tool: [result c1 math-add] 3\n"+
		"assistant:"), messages[0].Parts[0])
}

func TestUnknownRoleIsRejected(t *testing.T) {
	history := contents.NewChatHistoryFrom(contents.NewTextMessage("narrator", "once upon a time"))
	_, err := toMessages(history.Messages(), HistoryStructured)
	assert.ErrorIs(t, err, ErrUnsupportedRole)
}
