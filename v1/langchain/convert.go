package langchain

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// HistoryMode selects how the chat history is laid out for the model.
// langchaingo providers differ in which message parts they accept.
type HistoryMode int

const (
	// HistoryStructured sends tool calls as llms.ToolCall parts and results
	// as llms.ToolCallResponse parts.
	HistoryStructured HistoryMode = iota

	// HistoryText sends one text part per message, with function calls and
	// results rendered as text. Inline images stay binary parts.
	HistoryText

	// HistoryPrompt renders the whole conversation into a single human
	// message, for completion-style models.
	HistoryPrompt
)

// toMessages converts the history to langchaingo message contents.
func toMessages(history []*contents.ChatMessageContent, mode HistoryMode) ([]llms.MessageContent, error) {
	switch mode {
	case HistoryText:
		return textMessages(history)
	case HistoryPrompt:
		prompt, err := renderPrompt(history)
		if err != nil {
			return nil, err
		}
		return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, nil
	}

	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		role, err := messageType(m.Role)
		if err != nil {
			return nil, err
		}
		msg := llms.MessageContent{Role: role}
		for _, item := range m.Items {
			switch v := item.(type) {
			case *contents.TextContent:
				if v.Text != "" {
					msg.Parts = append(msg.Parts, llms.TextPart(v.Text))
				}
			case *contents.ImageContent:
				if v.URI != "" {
					msg.Parts = append(msg.Parts, llms.ImageURLPart(v.URI))
				} else {
					msg.Parts = append(msg.Parts, llms.BinaryPart(v.MimeType, v.Data))
				}
			case *contents.FunctionCallContent:
				msg.Parts = append(msg.Parts, llms.ToolCall{
					ID:   v.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      v.FullyQualifiedName(),
						Arguments: v.Arguments,
					},
				})
			case *contents.FunctionResultContent:
				msg.Parts = append(msg.Parts, llms.ToolCallResponse{
					ToolCallID: v.CallID,
					Name:       v.FullyQualifiedName(),
					Content:    v.String(),
				})
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

func messageType(role contents.AuthorRole) (llms.ChatMessageType, error) {
	switch role {
	case contents.RoleSystem, contents.RoleDeveloper:
		return llms.ChatMessageTypeSystem, nil
	case contents.RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case contents.RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	case contents.RoleTool:
		return llms.ChatMessageTypeTool, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedRole, role)
}

func textMessages(history []*contents.ChatMessageContent) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		role, err := messageType(m.Role)
		if err != nil {
			return nil, err
		}
		msg := llms.MessageContent{Role: role, Parts: []llms.ContentPart{llms.TextPart(messageText(m))}}
		for _, item := range m.Items {
			if img, ok := item.(*contents.ImageContent); ok && len(img.Data) > 0 {
				msg.Parts = append(msg.Parts, llms.BinaryPart(img.MimeType, img.Data))
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// messageText renders text, function calls and function results of m.
func messageText(m *contents.ChatMessageContent) string {
	var lines []string
	for _, item := range m.Items {
		switch v := item.(type) {
		case *contents.TextContent:
			if v.Text != "" {
				lines = append(lines, v.Text)
			}
		case *contents.FunctionCallContent:
			lines = append(lines, fmt.Sprintf("[call %s %s(%s)]", v.ID, v.FullyQualifiedName(), v.Arguments))
		case *contents.FunctionResultContent:
			lines = append(lines, fmt.Sprintf("[result %s %s] %s", v.CallID, v.FullyQualifiedName(), v.String()))
		}
	}
	return strings.Join(lines, "\n")
}

func renderPrompt(history []*contents.ChatMessageContent) (string, error) {
	var sb strings.Builder
	for _, m := range history {
		if _, err := messageType(m.Role); err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, messageText(m))
	}
	sb.WriteString(string(contents.RoleAssistant) + ":")
	return sb.String(), nil
}

// callOptions maps settings and tools to langchaingo call options. Unset
// settings are left to the model defaults.
func callOptions(modelID string, in *ai.ChatRequest) []llms.CallOption {
	s := in.Settings
	if s == nil {
		s = &kernel.PromptExecutionSettings{}
	}
	var opts []llms.CallOption
	switch {
	case s.ModelID != "":
		opts = append(opts, llms.WithModel(s.ModelID))
	case modelID != "":
		opts = append(opts, llms.WithModel(modelID))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(s.MaxTokens))
	}
	if s.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*s.Temperature))
	}
	if s.TopP != nil {
		opts = append(opts, llms.WithTopP(*s.TopP))
	}
	if s.Seed != nil {
		opts = append(opts, llms.WithSeed(*s.Seed))
	}
	if len(s.StopSequences) > 0 {
		opts = append(opts, llms.WithStopWords(s.StopSequences))
	}
	if s.NumberOfResponses > 1 {
		opts = append(opts, llms.WithN(s.NumberOfResponses))
	}
	if s.ResponseFormat == "json_object" || s.ResponseFormat == "json_schema" {
		opts = append(opts, llms.WithJSONMode())
	}

	if tools := toTools(in.Tools); len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools), llms.WithToolChoice(string(in.Tools.Choice)))
	}
	return opts
}

func toTools(cfg *kernel.FunctionChoiceConfiguration) []llms.Tool {
	if cfg == nil {
		return nil
	}
	defs := kernel.ToolDefinitions(cfg.Functions)
	tools := make([]llms.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools
}

// fromResponse converts every choice. Token counts are read from the
// generation info keys langchaingo providers share.
func fromResponse(resp *llms.ContentResponse, modelID string) ([]*contents.ChatMessageContent, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	out := make([]*contents.ChatMessageContent, 0, len(resp.Choices))
	for i, choice := range resp.Choices {
		msg := &contents.ChatMessageContent{
			Role:         contents.RoleAssistant,
			ModelID:      modelID,
			FinishReason: finishReason(choice),
		}
		if choice.Content != "" {
			msg.Items = append(msg.Items, &contents.TextContent{Text: choice.Content})
		}
		for j, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			call := contents.NewFunctionCall(tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
			call.Index = j
			msg.Items = append(msg.Items, call)
		}
		if i == 0 {
			msg.Usage = usage(choice.GenerationInfo)
		}
		out = append(out, msg)
	}
	return out, nil
}

func finishReason(choice *llms.ContentChoice) contents.FinishReason {
	if len(choice.ToolCalls) > 0 {
		return contents.FinishReasonToolCalls
	}
	if choice.StopReason == "" {
		return contents.FinishReasonStop
	}
	return contents.FinishReason(choice.StopReason)
}

func usage(info map[string]any) *contents.Usage {
	prompt, okP := intValue(info["PromptTokens"])
	completion, okC := intValue(info["CompletionTokens"])
	if !okP && !okC {
		return nil
	}
	return &contents.Usage{PromptTokens: prompt, CompletionTokens: completion}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func totalTokens(out []*contents.ChatMessageContent) int64 {
	if len(out) == 0 || out[0].Usage == nil {
		return 0
	}
	return int64(out[0].Usage.TotalTokens())
}
