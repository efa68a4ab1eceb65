package contents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeText(t *testing.T) {
	msg := Merge(
		&StreamingChatMessageContent{Role: RoleAssistant, Items: []Item{&TextContent{Text: "Hel"}}},
		&StreamingChatMessageContent{Items: []Item{&TextContent{Text: "lo"}}},
		&StreamingChatMessageContent{FinishReason: FinishReasonStop, Usage: &Usage{PromptTokens: 1, CompletionTokens: 2}},
	)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content())
	assert.Equal(t, FinishReasonStop, msg.FinishReason)
	assert.Equal(t, 3, msg.Usage.TotalTokens())
	assert.Empty(t, msg.FunctionCalls())
}

func TestMergeFunctionCallDeltasByIndex(t *testing.T) {
	first := NewFunctionCall("call_a", "math-add", `{"a":`)
	second := NewFunctionCall("call_b", "time-now", "")
	second.Index = 1

	acc := NewAccumulator()
	acc.Add(&StreamingChatMessageContent{Role: RoleAssistant, Items: []Item{first}})
	acc.Add(&StreamingChatMessageContent{Items: []Item{second}})
	acc.Add(&StreamingChatMessageContent{Items: []Item{&FunctionCallContent{Index: 0, Arguments: `1,"b":2}`}}})
	acc.Add(&StreamingChatMessageContent{Items: []Item{&FunctionCallContent{Index: 1, Arguments: `{}`}}})
	acc.Add(&StreamingChatMessageContent{FinishReason: FinishReasonToolCalls})
	require.True(t, acc.HasFunctionCalls())

	msg := acc.Message()
	calls := msg.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "call_a", calls[0].ID)
	assert.Equal(t, "math", calls[0].PluginName)
	assert.Equal(t, "add", calls[0].FunctionName)
	assert.Equal(t, `{"a":1,"b":2}`, calls[0].Arguments)
	assert.Equal(t, "call_b", calls[1].ID)
	assert.Equal(t, `{}`, calls[1].Arguments)
	assert.Equal(t, FinishReasonToolCalls, msg.FinishReason)
}

func TestAccumulatorDefaultsRole(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(nil)
	assert.Equal(t, RoleAssistant, acc.Message().Role)
	assert.False(t, acc.HasFunctionCalls())
}

func TestStreamingContent(t *testing.T) {
	chunk := &StreamingChatMessageContent{Items: []Item{&TextContent{Text: "a"}, &FunctionCallContent{}, &TextContent{Text: "b"}}}
	assert.Equal(t, "ab", chunk.Content())
}
