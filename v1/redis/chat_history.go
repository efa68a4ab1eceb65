package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

var _ contents.ChatHistoryStore = (*ChatHistoryStore)(nil)

// ChatHistoryStore keeps each conversation in a Redis list, one JSON
// encoded message per element, under "<prefix>chat:<session>".
type ChatHistoryStore struct {
	client *RedisClient
	prefix string
	ttl    time.Duration
}

// NewChatHistoryStore uses the client's KeyPrefix and HistoryTTL.
func NewChatHistoryStore(client *RedisClient) *ChatHistoryStore {
	cfg := client.Config()
	return &ChatHistoryStore{client: client, prefix: cfg.KeyPrefix, ttl: cfg.HistoryTTL}
}

func (s *ChatHistoryStore) key(sessionID string) string {
	return s.prefix + "chat:" + sessionID
}

func (s *ChatHistoryStore) Load(ctx context.Context, sessionID string) (history *contents.ChatHistory, err error) {
	key := s.key(sessionID)
	done := s.client.track("history_load", sessionID, key)
	defer func() {
		var n int64
		if history != nil {
			n = int64(history.Len())
		}
		done(err, n)
	}()

	raw, err := s.client.Client().LRange(ctx, key, 0, -1).Result()
	if err != nil && !IsNilError(err) {
		return nil, fmt.Errorf("[Redis] loading history %s: %w", sessionID, err)
	}

	messages := make([]*contents.ChatMessageContent, 0, len(raw))
	for i, item := range raw {
		msg := &contents.ChatMessageContent{}
		if err := json.Unmarshal([]byte(item), msg); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %w", ErrCorruptHistory, key, i, err)
		}
		messages = append(messages, msg)
	}
	return contents.NewChatHistoryFrom(messages...), nil
}

// Append pushes the messages and refreshes the expiry in one transaction.
func (s *ChatHistoryStore) Append(ctx context.Context, sessionID string, messages ...*contents.ChatMessageContent) (err error) {
	if len(messages) == 0 {
		return nil
	}
	key := s.key(sessionID)
	done := s.client.track("history_append", sessionID, key)
	defer func() { done(err, int64(len(messages))) }()

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("[Redis] encoding message: %w", err)
		}
		values = append(values, b)
	}

	_, err = s.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[Redis] appending to history %s: %w", sessionID, err)
	}
	return nil
}

func (s *ChatHistoryStore) Delete(ctx context.Context, sessionID string) (err error) {
	key := s.key(sessionID)
	done := s.client.track("history_delete", sessionID, key)
	defer func() { done(err, 0) }()

	if err = s.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("[Redis] deleting history %s: %w", sessionID, err)
	}
	return nil
}
