package contents

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation(turns int) *ChatHistory {
	h := NewChatHistory("system prompt")
	for i := 0; i < turns; i++ {
		h.AddUserMessage(fmt.Sprintf("q%d", i))
		h.AddAssistantMessage(fmt.Sprintf("a%d", i))
	}
	return h
}

func TestReducerBelowThreshold(t *testing.T) {
	h := conversation(2)
	changed, err := TruncationReducer{TargetCount: 4, ThresholdCount: 1}.Reduce(h)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 5, h.Len())
}

func TestReducerKeepsSystemMessage(t *testing.T) {
	h := conversation(5)
	changed, err := TruncationReducer{TargetCount: 3}.Reduce(h)
	require.NoError(t, err)
	require.True(t, changed)

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "q4", msgs[1].Content())
	assert.Equal(t, "a4", msgs[2].Content())
}

func TestReducerKeepsFunctionCallWithResult(t *testing.T) {
	call := NewFunctionCall("c1", "math-add", "{}")
	h := conversation(3)
	h.AddUserMessage("add")
	h.AddMessage(&ChatMessageContent{Role: RoleAssistant, Items: []Item{call}})
	h.AddToolMessage(NewFunctionResult(call, 3))
	h.AddAssistantMessage("3")

	// a cut at 2 kept messages would start at the tool message
	changed, err := TruncationReducer{TargetCount: 3}.Reduce(h)
	require.NoError(t, err)
	require.True(t, changed)

	msgs := h.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Len(t, msgs[1].FunctionCalls(), 1)
	assert.Equal(t, RoleTool, msgs[2].Role)
	assert.Equal(t, "3", msgs[3].Content())
}

func TestReducerInvalidTarget(t *testing.T) {
	_, err := TruncationReducer{}.Reduce(conversation(1))
	assert.ErrorIs(t, err, ErrInvalidReducer)
}
