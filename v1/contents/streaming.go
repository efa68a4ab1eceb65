package contents

import (
	"sort"
	"strings"
)

// StreamingChatMessageContent is one chunk of a streamed response.
// Items carry text deltas and function-call deltas.
type StreamingChatMessageContent struct {
	ChoiceIndex  int
	Role         AuthorRole
	Items        []Item
	ModelID      string
	FinishReason FinishReason
	Usage        *Usage
}

// Content concatenates the text deltas of the chunk.
func (s *StreamingChatMessageContent) Content() string {
	var sb strings.Builder
	for _, item := range s.Items {
		if t, ok := item.(*TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// Accumulator folds the chunks of one choice into a ChatMessageContent.
// Function-call deltas are merged by Index: ID and name come from the first
// delta that has them, argument fragments are concatenated.
type Accumulator struct {
	role         AuthorRole
	modelID      string
	finishReason FinishReason
	usage        *Usage
	text         strings.Builder
	calls        map[int]*FunctionCallContent
	args         map[int]*strings.Builder
	extra        []Item
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		calls: map[int]*FunctionCallContent{},
		args:  map[int]*strings.Builder{},
	}
}

// Add merges a chunk.
func (a *Accumulator) Add(chunk *StreamingChatMessageContent) {
	if chunk == nil {
		return
	}
	if chunk.Role != "" && a.role == "" {
		a.role = chunk.Role
	}
	if chunk.ModelID != "" {
		a.modelID = chunk.ModelID
	}
	if chunk.FinishReason != "" {
		a.finishReason = chunk.FinishReason
	}
	if chunk.Usage != nil {
		a.usage = chunk.Usage
	}
	for _, item := range chunk.Items {
		switch v := item.(type) {
		case *TextContent:
			a.text.WriteString(v.Text)
		case *FunctionCallContent:
			a.addCall(v)
		default:
			a.extra = append(a.extra, item)
		}
	}
}

func (a *Accumulator) addCall(delta *FunctionCallContent) {
	call, ok := a.calls[delta.Index]
	if !ok {
		call = &FunctionCallContent{Index: delta.Index}
		a.calls[delta.Index] = call
		a.args[delta.Index] = &strings.Builder{}
	}
	if call.ID == "" {
		call.ID = delta.ID
	}
	if call.FunctionName == "" && delta.FunctionName != "" {
		call.PluginName = delta.PluginName
		call.FunctionName = delta.FunctionName
	}
	a.args[delta.Index].WriteString(delta.Arguments)
}

// HasFunctionCalls reports whether any call delta was seen.
func (a *Accumulator) HasFunctionCalls() bool {
	return len(a.calls) > 0
}

// Message returns the merged message. Calls are ordered by Index.
func (a *Accumulator) Message() *ChatMessageContent {
	role := a.role
	if role == "" {
		role = RoleAssistant
	}
	msg := &ChatMessageContent{
		Role:         role,
		ModelID:      a.modelID,
		FinishReason: a.finishReason,
		Usage:        a.usage,
	}
	if a.text.Len() > 0 {
		msg.Items = append(msg.Items, &TextContent{Text: a.text.String()})
	}

	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		call := *a.calls[i]
		call.Arguments = a.args[i].String()
		msg.Items = append(msg.Items, &call)
	}

	msg.Items = append(msg.Items, a.extra...)
	return msg
}

// Merge folds chunks into one message.
func Merge(chunks ...*StreamingChatMessageContent) *ChatMessageContent {
	acc := NewAccumulator()
	for _, c := range chunks {
		acc.Add(c)
	}
	return acc.Message()
}
