package contents

import "sync"

// ChatHistory is an ordered, concurrency-safe list of messages.
type ChatHistory struct {
	mu       sync.RWMutex
	messages []*ChatMessageContent
}

// NewChatHistory returns a history that starts with a system message when
// systemMessage is not empty.
func NewChatHistory(systemMessage string) *ChatHistory {
	h := &ChatHistory{}
	if systemMessage != "" {
		h.AddSystemMessage(systemMessage)
	}
	return h
}

// NewChatHistoryFrom wraps existing messages.
func NewChatHistoryFrom(messages ...*ChatMessageContent) *ChatHistory {
	return &ChatHistory{messages: append([]*ChatMessageContent(nil), messages...)}
}

func (h *ChatHistory) AddMessage(messages ...*ChatMessageContent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, messages...)
}

func (h *ChatHistory) AddSystemMessage(text string) {
	h.AddMessage(NewTextMessage(RoleSystem, text))
}

func (h *ChatHistory) AddDeveloperMessage(text string) {
	h.AddMessage(NewTextMessage(RoleDeveloper, text))
}

func (h *ChatHistory) AddUserMessage(text string) {
	h.AddMessage(NewTextMessage(RoleUser, text))
}

func (h *ChatHistory) AddAssistantMessage(text string) {
	h.AddMessage(NewTextMessage(RoleAssistant, text))
}

// AddToolMessage appends the result of a function call.
func (h *ChatHistory) AddToolMessage(result *FunctionResultContent) {
	h.AddMessage(result.ToMessage())
}

// Messages returns a snapshot of the messages.
func (h *ChatHistory) Messages() []*ChatMessageContent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*ChatMessageContent(nil), h.messages...)
}

// Last returns the last n messages, or all of them if fewer exist.
func (h *ChatHistory) Last(n int) []*ChatMessageContent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n > len(h.messages) {
		n = len(h.messages)
	}
	return append([]*ChatMessageContent(nil), h.messages[len(h.messages)-n:]...)
}

func (h *ChatHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clone returns an independent history sharing the message values.
func (h *ChatHistory) Clone() *ChatHistory {
	return NewChatHistoryFrom(h.Messages()...)
}

// Replace swaps the whole message list, e.g. after a reduction.
func (h *ChatHistory) Replace(messages []*ChatMessageContent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append([]*ChatMessageContent(nil), messages...)
}
