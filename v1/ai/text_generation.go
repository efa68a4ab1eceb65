package ai

import (
	"context"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// ChatTextGeneration serves TextGeneration from a chat service by sending
// the prompt as a single user message. Function calling is disabled.
type ChatTextGeneration struct {
	Chat ChatCompletion
}

// NewChatTextGeneration wraps chat.
func NewChatTextGeneration(chat ChatCompletion) *ChatTextGeneration {
	return &ChatTextGeneration{Chat: chat}
}

func (g *ChatTextGeneration) ServiceID() string { return g.Chat.ServiceID() }
func (g *ChatTextGeneration) ModelID() string   { return g.Chat.ModelID() }

func (g *ChatTextGeneration) GetTextContents(ctx context.Context, prompt string, settings *kernel.PromptExecutionSettings) ([]*contents.TextContent, error) {
	history := contents.NewChatHistory("")
	history.AddUserMessage(prompt)
	messages, err := g.Chat.GetChatMessageContents(ctx, history, textSettings(settings), nil)
	if err != nil {
		return nil, err
	}
	out := make([]*contents.TextContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, &contents.TextContent{Text: m.Content()})
	}
	return out, nil
}

func (g *ChatTextGeneration) GetStreamingTextContents(ctx context.Context, prompt string, settings *kernel.PromptExecutionSettings, handler func(*contents.TextContent) error) error {
	history := contents.NewChatHistory("")
	history.AddUserMessage(prompt)
	return g.Chat.GetStreamingChatMessageContents(ctx, history, textSettings(settings), nil, func(chunk *contents.StreamingChatMessageContent) error {
		if text := chunk.Content(); text != "" {
			return handler(&contents.TextContent{Text: text})
		}
		return nil
	})
}

func textSettings(settings *kernel.PromptExecutionSettings) *kernel.PromptExecutionSettings {
	out := settings.Clone()
	out.FunctionChoiceBehavior = nil
	return out
}
