package openai

import (
	"encoding/json"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// jsonSchema adapts a schema map to the json.Marshaler go-openai expects.
type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

// toMessages converts the history to the chat wire format. A tool message
// carrying several results becomes one wire message per result.
func toMessages(history []*contents.ChatMessageContent) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case contents.RoleTool:
			for _, r := range m.FunctionResults() {
				out = append(out, goopenai.ChatCompletionMessage{
					Role:       goopenai.ChatMessageRoleTool,
					Content:    r.String(),
					ToolCallID: r.CallID,
				})
			}
		case contents.RoleAssistant:
			msg := goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleAssistant,
				Content: m.Content(),
				Name:    m.Name,
			}
			for _, call := range m.FunctionCalls() {
				msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
					ID:   call.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      call.FullyQualifiedName(),
						Arguments: call.Arguments,
					},
				})
			}
			out = append(out, msg)
		default:
			out = append(out, userMessage(m))
		}
	}
	return out
}

// userMessage handles system, developer and user messages. Images turn the
// content into multi-part content.
func userMessage(m *contents.ChatMessageContent) goopenai.ChatCompletionMessage {
	msg := goopenai.ChatCompletionMessage{Role: string(m.Role), Name: m.Name}
	hasImage := false
	for _, item := range m.Items {
		if _, ok := item.(*contents.ImageContent); ok {
			hasImage = true
			break
		}
	}
	if !hasImage {
		msg.Content = m.Content()
		return msg
	}
	for _, item := range m.Items {
		switch v := item.(type) {
		case *contents.TextContent:
			msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: v.Text,
			})
		case *contents.ImageContent:
			msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
				Type:     goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{URL: imageURL(v)},
			})
		}
	}
	return msg
}

func imageURL(img *contents.ImageContent) string {
	if img.URI != "" {
		return img.URI
	}
	mime := img.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + encodeBase64(img.Data)
}

// toTools advertises the configured functions. Nil tools or an empty
// function list send no tools at all.
func toTools(cfg *kernel.FunctionChoiceConfiguration) ([]goopenai.Tool, any) {
	if cfg == nil || len(cfg.Functions) == 0 {
		return nil, nil
	}
	defs := kernel.ToolDefinitions(cfg.Functions)
	tools := make([]goopenai.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools, string(cfg.Choice)
}

// buildRequest maps the provider-neutral request to go-openai.
func buildRequest(modelID string, in *ai.ChatRequest) goopenai.ChatCompletionRequest {
	s := in.Settings
	if s == nil {
		s = &kernel.PromptExecutionSettings{}
	}
	if s.ModelID != "" {
		modelID = s.ModelID
	}
	req := goopenai.ChatCompletionRequest{
		Model:       modelID,
		Messages:    toMessages(in.History.Messages()),
		MaxTokens:   s.MaxTokens,
		Temperature: float32Ptr(s.Temperature),
		TopP:        float32Ptr(s.TopP),
		Stop:        s.StopSequences,
		Seed:        s.Seed,
		User:        s.User,
	}
	if s.NumberOfResponses > 1 {
		req.N = s.NumberOfResponses
	}

	switch s.ResponseFormat {
	case "json_object":
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	case "json_schema":
		name, _ := s.Extra["response_schema_name"].(string)
		if name == "" {
			name = "response"
		}
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: jsonSchema(s.ResponseSchema),
				Strict: true,
			},
		}
	}

	req.Tools, req.ToolChoice = toTools(in.Tools)
	if len(req.Tools) > 0 {
		switch {
		case s.ParallelToolCalls != nil:
			req.ParallelToolCalls = *s.ParallelToolCalls
		case in.Tools.AllowParallelCalls != nil:
			req.ParallelToolCalls = *in.Tools.AllowParallelCalls
		}
	}
	return req
}

// fromResponse converts every choice. Usage is attached to the first message.
func fromResponse(resp goopenai.ChatCompletionResponse) []*contents.ChatMessageContent {
	out := make([]*contents.ChatMessageContent, 0, len(resp.Choices))
	for i, choice := range resp.Choices {
		msg := &contents.ChatMessageContent{
			Role:         contents.RoleAssistant,
			ModelID:      resp.Model,
			FinishReason: contents.FinishReason(choice.FinishReason),
			Metadata: map[string]any{
				"id":                 resp.ID,
				"system_fingerprint": resp.SystemFingerprint,
			},
		}
		if choice.Message.Content != "" {
			msg.Items = append(msg.Items, &contents.TextContent{Text: choice.Message.Content})
		}
		for j, tc := range choice.Message.ToolCalls {
			call := contents.NewFunctionCall(tc.ID, tc.Function.Name, tc.Function.Arguments)
			call.Index = j
			msg.Items = append(msg.Items, call)
		}
		if i == 0 {
			msg.Usage = &contents.Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
			}
		}
		out = append(out, msg)
	}
	return out
}

// fromStreamResponse converts one streamed event into chunks, one per choice.
func fromStreamResponse(resp goopenai.ChatCompletionStreamResponse) []*contents.StreamingChatMessageContent {
	out := make([]*contents.StreamingChatMessageContent, 0, len(resp.Choices)+1)
	for _, choice := range resp.Choices {
		chunk := &contents.StreamingChatMessageContent{
			ChoiceIndex:  choice.Index,
			Role:         contents.AuthorRole(choice.Delta.Role),
			ModelID:      resp.Model,
			FinishReason: contents.FinishReason(choice.FinishReason),
		}
		if choice.Delta.Content != "" {
			chunk.Items = append(chunk.Items, &contents.TextContent{Text: choice.Delta.Content})
		}
		for j, tc := range choice.Delta.ToolCalls {
			index := j
			if tc.Index != nil {
				index = *tc.Index
			}
			plugin, function := contents.SplitName(tc.Function.Name)
			chunk.Items = append(chunk.Items, &contents.FunctionCallContent{
				ID:           tc.ID,
				Index:        index,
				PluginName:   plugin,
				FunctionName: function,
				Arguments:    tc.Function.Arguments,
			})
		}
		out = append(out, chunk)
	}
	if resp.Usage != nil {
		out = append(out, &contents.StreamingChatMessageContent{
			ModelID: resp.Model,
			Usage: &contents.Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
			},
		})
	}
	return out
}
