package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// Logger is the logging contract of this package.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=langchain
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Option configures the adapters of this package.
type Option func(*options)

type options struct {
	observer  observability.Observer
	component string
	logger    Logger
	history   HistoryMode
}

func WithObserver(observer observability.Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithComponent renames the component reported to the observer. The ollama
// and huggingface connectors report under their own name.
func WithComponent(name string) Option {
	return func(o *options) { o.component = name }
}

func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHistoryMode selects the history layout. Defaults to HistoryStructured.
func WithHistoryMode(mode HistoryMode) Option {
	return func(o *options) { o.history = mode }
}

func newOptions(opts []Option) options {
	o := options{component: "langchain"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) observe(operation, resource string, duration time.Duration, err error, size int64) {
	if o.observer == nil {
		return
	}
	o.observer.ObserveOperation(observability.OperationContext{
		Component: o.component,
		Operation: operation,
		Resource:  resource,
		Duration:  duration,
		Error:     err,
		Size:      size,
	})
}

// ChatModel adapts a langchaingo llms.Model to ai.ChatModel.
//
// langchaingo streams text only; function calls arrive with the final
// response and are emitted as the last chunk of a stream.
type ChatModel struct {
	llm       llms.Model
	serviceID string
	modelID   string
	opts      options
}

// NewChatModel wraps llm. modelID is informational unless the execution
// settings carry no model, in which case it is sent with every request.
//
// Example:
//
//	llm, _ := ollama.New(ollama.WithModel("llama3.1"))
//	chat := ai.NewFunctionCallingClient(langchain.NewChatModel(llm, "ollama", "llama3.1"))
func NewChatModel(llm llms.Model, serviceID, modelID string, opts ...Option) *ChatModel {
	return &ChatModel{llm: llm, serviceID: serviceID, modelID: modelID, opts: newOptions(opts)}
}

func (m *ChatModel) ServiceID() string { return m.serviceID }
func (m *ChatModel) ModelID() string   { return m.modelID }

// LLM returns the wrapped model.
func (m *ChatModel) LLM() llms.Model { return m.llm }

func (m *ChatModel) Complete(ctx context.Context, in *ai.ChatRequest) ([]*contents.ChatMessageContent, error) {
	messages, err := toMessages(in.History.Messages(), m.opts.history)
	if err != nil {
		return nil, err
	}
	callOpts := callOptions(m.modelID, in)

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, messages, callOpts...)
	err = wrap(ErrGenerateFailed, err)
	out, convErr := fromResponse(resp, m.modelID)
	m.opts.observe("chat_completion", m.modelID, time.Since(start), err, totalTokens(out))
	if err != nil {
		m.log("content generation failed", err, in.RequestIndex)
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}

func (m *ChatModel) CompleteStream(ctx context.Context, in *ai.ChatRequest, handler ai.StreamHandler) error {
	messages, err := toMessages(in.History.Messages(), m.opts.history)
	if err != nil {
		return err
	}
	callOpts := callOptions(m.modelID, in)
	callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return handler(&contents.StreamingChatMessageContent{
			Role:    contents.RoleAssistant,
			ModelID: m.modelID,
			Items:   []contents.Item{&contents.TextContent{Text: string(chunk)}},
		})
	}))

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, messages, callOpts...)
	err = wrap(ErrGenerateFailed, err)
	out, convErr := fromResponse(resp, m.modelID)
	m.opts.observe("chat_completion_stream", m.modelID, time.Since(start), err, totalTokens(out))
	if err != nil {
		m.log("streaming content generation failed", err, in.RequestIndex)
		return err
	}
	if convErr != nil {
		return convErr
	}

	// The text was already streamed; the closing chunk carries what
	// langchaingo only reports at the end.
	final := out[0]
	last := &contents.StreamingChatMessageContent{
		Role:         contents.RoleAssistant,
		ModelID:      final.ModelID,
		FinishReason: final.FinishReason,
		Usage:        final.Usage,
	}
	for _, call := range final.FunctionCalls() {
		last.Items = append(last.Items, call)
	}
	return handler(last)
}

func (m *ChatModel) log(msg string, err error, requestIndex int) {
	if m.opts.logger == nil {
		return
	}
	m.opts.logger.Error(msg, err, map[string]interface{}{
		"service":       m.serviceID,
		"model":         m.modelID,
		"request_index": requestIndex,
	})
}

// EmbeddingGenerator adapts a langchaingo embeddings.Embedder to
// ai.EmbeddingGenerator.
type EmbeddingGenerator struct {
	embedder  embeddings.Embedder
	serviceID string
	modelID   string
	opts      options
}

func NewEmbeddingGenerator(embedder embeddings.Embedder, serviceID, modelID string, opts ...Option) *EmbeddingGenerator {
	return &EmbeddingGenerator{embedder: embedder, serviceID: serviceID, modelID: modelID, opts: newOptions(opts)}
}

func (g *EmbeddingGenerator) ServiceID() string { return g.serviceID }
func (g *EmbeddingGenerator) ModelID() string   { return g.modelID }

// GenerateEmbeddings returns one vector per text, in input order.
func (g *EmbeddingGenerator) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	vectors, err := g.embedder.EmbedDocuments(ctx, texts)
	err = wrap(ErrEmbedFailed, err)
	g.opts.observe("embeddings", g.modelID, time.Since(start), err, int64(len(texts)))
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings for %d inputs", ErrEmbedFailed, len(vectors), len(texts))
	}
	return vectors, nil
}
