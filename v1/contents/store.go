package contents

import "context"

// ChatHistoryStore persists conversations by session id. Loading an
// unknown session returns an empty history.
type ChatHistoryStore interface {
	Load(ctx context.Context, sessionID string) (*ChatHistory, error)
	Append(ctx context.Context, sessionID string, messages ...*ChatMessageContent) error
	Delete(ctx context.Context, sessionID string) error
}
