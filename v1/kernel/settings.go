package kernel

// PromptExecutionSettings are the provider-neutral request settings.
// Connectors map the fields they support and ignore the rest; Extra carries
// provider specific values through unchanged.
type PromptExecutionSettings struct {
	ServiceID string `json:"service_id,omitempty" yaml:"service_id"`
	ModelID   string `json:"model_id,omitempty" yaml:"model_id"`

	MaxTokens     int      `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature"`
	TopP          *float64 `json:"top_p,omitempty" yaml:"top_p"`
	StopSequences []string `json:"stop,omitempty" yaml:"stop"`
	Seed          *int     `json:"seed,omitempty" yaml:"seed"`
	User          string   `json:"user,omitempty" yaml:"user"`

	// ResponseFormat is "text", "json_object" or "json_schema". ResponseSchema
	// is used with json_schema.
	ResponseFormat string         `json:"response_format,omitempty" yaml:"response_format"`
	ResponseSchema map[string]any `json:"response_schema,omitempty" yaml:"response_schema"`

	// NumberOfResponses must be 1 (or 0) when functions are auto-invoked.
	NumberOfResponses int `json:"n,omitempty" yaml:"n"`

	// ParallelToolCalls is sent only when set.
	ParallelToolCalls *bool `json:"parallel_tool_calls,omitempty" yaml:"parallel_tool_calls"`

	FunctionChoiceBehavior *FunctionChoiceBehavior `json:"function_choice_behavior,omitempty" yaml:"function_choice_behavior"`

	Extra map[string]any `json:"extra,omitempty" yaml:"extra"`
}

// Clone returns a copy that can be modified without touching s. The
// function choice behavior is copied as well.
func (s *PromptExecutionSettings) Clone() *PromptExecutionSettings {
	if s == nil {
		return &PromptExecutionSettings{}
	}
	out := *s
	out.StopSequences = append([]string(nil), s.StopSequences...)
	if s.FunctionChoiceBehavior != nil {
		b := *s.FunctionChoiceBehavior
		out.FunctionChoiceBehavior = &b
	}
	if s.Extra != nil {
		out.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// ResponseCount returns NumberOfResponses with 0 read as 1.
func (s *PromptExecutionSettings) ResponseCount() int {
	if s == nil || s.NumberOfResponses <= 0 {
		return 1
	}
	return s.NumberOfResponses
}
