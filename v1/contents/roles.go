package contents

// AuthorRole is the author of a chat message.
type AuthorRole string

const (
	RoleSystem    AuthorRole = "system"
	RoleDeveloper AuthorRole = "developer"
	RoleUser      AuthorRole = "user"
	RoleAssistant AuthorRole = "assistant"
	RoleTool      AuthorRole = "tool"
)

// FinishReason is why the model stopped producing output.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Usage is the token accounting reported by a model.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// Add returns the sum of both usages; nil operands count as zero.
func (u *Usage) Add(other *Usage) *Usage {
	out := &Usage{}
	if u != nil {
		*out = *u
	}
	if other != nil {
		out.PromptTokens += other.PromptTokens
		out.CompletionTokens += other.CompletionTokens
	}
	return out
}
