package huggingface

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// TextGeneration sends prompts verbatim to the text-generation endpoint.
type TextGeneration struct {
	client *Client
}

func (c *Client) TextGeneration() *TextGeneration {
	return &TextGeneration{client: c}
}

func (g *TextGeneration) ServiceID() string { return g.client.cfg.ServiceID }
func (g *TextGeneration) ModelID() string   { return g.client.cfg.Model }

func (g *TextGeneration) GetTextContents(ctx context.Context, prompt string, settings *kernel.PromptExecutionSettings) ([]*contents.TextContent, error) {
	if prompt == "" {
		return nil, ai.ErrInvalidPrompt
	}
	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, g.client.llm, prompt, generationOptions(settings)...)
	g.observe(time.Since(start), err)
	if err != nil {
		g.client.logger.Error("text generation failed", err, map[string]interface{}{"model": g.client.cfg.Model})
		return nil, err
	}
	return []*contents.TextContent{{Text: text}}, nil
}

// GetStreamingTextContents delivers the whole generation as one chunk; the
// inference API does not stream.
func (g *TextGeneration) GetStreamingTextContents(ctx context.Context, prompt string, settings *kernel.PromptExecutionSettings, handler func(*contents.TextContent) error) error {
	out, err := g.GetTextContents(ctx, prompt, settings)
	if err != nil {
		return err
	}
	return handler(out[0])
}

func generationOptions(s *kernel.PromptExecutionSettings) []llms.CallOption {
	if s == nil {
		return nil
	}
	var opts []llms.CallOption
	if s.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*s.Temperature))
	}
	if s.TopP != nil {
		opts = append(opts, llms.WithTopP(*s.TopP))
	}
	if s.Seed != nil {
		opts = append(opts, llms.WithSeed(*s.Seed))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxLength(s.MaxTokens))
	}
	return opts
}

func (g *TextGeneration) observe(duration time.Duration, err error) {
	if g.client.observer == nil {
		return
	}
	g.client.observer.ObserveOperation(observability.OperationContext{
		Component: "huggingface",
		Operation: "text_generation",
		Resource:  g.client.cfg.Model,
		Duration:  duration,
		Error:     err,
	})
}
