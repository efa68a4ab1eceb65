package contents

import "strings"

// ChatMessageContent is one message of a conversation.
type ChatMessageContent struct {
	Role         AuthorRole
	Name         string
	Items        []Item
	ModelID      string
	FinishReason FinishReason
	Usage        *Usage
	Metadata     map[string]any
}

// NewTextMessage returns a message with a single text item.
func NewTextMessage(role AuthorRole, text string) *ChatMessageContent {
	return &ChatMessageContent{
		Role:  role,
		Items: []Item{&TextContent{Text: text}},
	}
}

// Content concatenates the text items.
func (m *ChatMessageContent) Content() string {
	var sb strings.Builder
	for _, item := range m.Items {
		if t, ok := item.(*TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// FunctionCalls returns the function-call items in order.
func (m *ChatMessageContent) FunctionCalls() []*FunctionCallContent {
	var calls []*FunctionCallContent
	for _, item := range m.Items {
		if c, ok := item.(*FunctionCallContent); ok {
			calls = append(calls, c)
		}
	}
	return calls
}

// FunctionResults returns the function-result items in order.
func (m *ChatMessageContent) FunctionResults() []*FunctionResultContent {
	var results []*FunctionResultContent
	for _, item := range m.Items {
		if r, ok := item.(*FunctionResultContent); ok {
			results = append(results, r)
		}
	}
	return results
}

// Clone copies the message and its item slice. Items are shared.
func (m *ChatMessageContent) Clone() *ChatMessageContent {
	out := *m
	out.Items = append([]Item(nil), m.Items...)
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// MergeToolMessages folds several tool messages into one, keeping every
// function result in order. Used when a filter terminates the loop.
func MergeToolMessages(messages []*ChatMessageContent) *ChatMessageContent {
	out := &ChatMessageContent{Role: RoleTool}
	for _, m := range messages {
		out.Items = append(out.Items, m.Items...)
	}
	return out
}
