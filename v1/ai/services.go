package ai

import (
	"context"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// StreamHandler receives the chunks of a streamed chat response in order.
// Returning an error stops the stream.
type StreamHandler func(chunk *contents.StreamingChatMessageContent) error

// ChatCompletion is a chat model with the function-calling loop applied.
type ChatCompletion interface {
	kernel.Service

	// GetChatMessageContents sends history and returns one message per
	// requested choice. With auto-invoke enabled the assistant messages and
	// function results of intermediate rounds are appended to history.
	GetChatMessageContents(ctx context.Context, history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel) ([]*contents.ChatMessageContent, error)

	GetStreamingChatMessageContents(ctx context.Context, history *contents.ChatHistory, settings *kernel.PromptExecutionSettings, k *kernel.Kernel, handler StreamHandler) error
}

// TextGeneration completes a single prompt.
type TextGeneration interface {
	kernel.Service
	GetTextContents(ctx context.Context, prompt string, settings *kernel.PromptExecutionSettings) ([]*contents.TextContent, error)
	GetStreamingTextContents(ctx context.Context, prompt string, settings *kernel.PromptExecutionSettings, handler func(*contents.TextContent) error) error
}

// EmbeddingGenerator turns texts into vectors, one per input in order.
type EmbeddingGenerator interface {
	kernel.Service
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// TextToImage generates an image from a description.
type TextToImage interface {
	kernel.Service
	GenerateImage(ctx context.Context, description string, width, height int) (*contents.ImageContent, error)
}

// TextToAudioSettings tune speech synthesis. Zero values select the
// provider defaults.
type TextToAudioSettings struct {
	Voice          string  `json:"voice,omitempty" yaml:"voice"`
	ResponseFormat string  `json:"response_format,omitempty" yaml:"response_format"`
	Speed          float64 `json:"speed,omitempty" yaml:"speed"`
	Instructions   string  `json:"instructions,omitempty" yaml:"instructions"`
}

// TextToAudio synthesises speech.
type TextToAudio interface {
	kernel.Service
	GetAudioContent(ctx context.Context, text string, settings *TextToAudioSettings) (*contents.AudioContent, error)
}

// RerankResult is one scored document. Index points into the documents
// passed to Rerank.
type RerankResult struct {
	Index    int     `json:"index"`
	Score    float64 `json:"score"`
	Document string  `json:"document"`
}

// Reranker orders documents by relevance to a query, best first.
type Reranker interface {
	kernel.Service
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}

// ChatRequest is one request of the function-calling loop as it reaches a
// ChatModel.
type ChatRequest struct {
	History  *contents.ChatHistory
	Settings *kernel.PromptExecutionSettings

	// Tools are the functions to advertise and the tool choice. Nil sends
	// no tools.
	Tools *kernel.FunctionChoiceConfiguration

	// RequestIndex is the auto-invoke round, 0 for the first request.
	RequestIndex int
}

// ChatModel is the provider side of a chat connector: a single request
// translated to the provider wire format. FunctionCallingClient adds the
// function-calling loop on top.
type ChatModel interface {
	kernel.Service
	Complete(ctx context.Context, req *ChatRequest) ([]*contents.ChatMessageContent, error)
	CompleteStream(ctx context.Context, req *ChatRequest, handler StreamHandler) error
}
