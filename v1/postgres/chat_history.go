package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// ChatMessage is one persisted message of a session. Message holds the
// JSON form of contents.ChatMessageContent.
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:255;not null;uniqueIndex:idx_chat_messages_session_position,priority:1"`
	Position  int    `gorm:"not null;uniqueIndex:idx_chat_messages_session_position,priority:2"`
	Message   []byte `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

func (ChatMessage) TableName() string { return "chat_messages" }

var _ contents.ChatHistoryStore = (*ChatHistoryStore)(nil)

// ChatHistoryStore keeps conversations in the chat_messages table.
type ChatHistoryStore struct {
	pg *Postgres
}

// NewChatHistoryStore migrates the chat_messages table.
func NewChatHistoryStore(ctx context.Context, pg *Postgres) (*ChatHistoryStore, error) {
	if err := pg.DB().WithContext(ctx).AutoMigrate(&ChatMessage{}); err != nil {
		return nil, fmt.Errorf("[Postgres] migrating chat_messages: %w", TranslateError(err))
	}
	return &ChatHistoryStore{pg: pg}, nil
}

func (s *ChatHistoryStore) Load(ctx context.Context, sessionID string) (*contents.ChatHistory, error) {
	var rows []ChatMessage
	err := s.pg.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, TranslateError(err)
	}

	history := contents.NewChatHistoryFrom()
	for _, row := range rows {
		msg := &contents.ChatMessageContent{}
		if err := json.Unmarshal(row.Message, msg); err != nil {
			return nil, fmt.Errorf("[Postgres] decoding message %d of session %s: %w", row.Position, sessionID, err)
		}
		history.AddMessage(msg)
	}
	return history, nil
}

// Append adds messages after the last stored position. The session's rows
// are locked so concurrent appends keep a gapless order.
func (s *ChatHistoryStore) Append(ctx context.Context, sessionID string, messages ...*contents.ChatMessageContent) error {
	if len(messages) == 0 {
		return nil
	}
	rows := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("[Postgres] encoding message: %w", err)
		}
		rows = append(rows, ChatMessage{SessionID: sessionID, Message: b})
	}

	return s.pg.Transaction(ctx, func(tx *gorm.DB) error {
		var last ChatMessage
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			Order("position DESC").
			Limit(1).
			Find(&last).Error
		if err != nil {
			return err
		}
		next := 0
		if last.ID != 0 {
			next = last.Position + 1
		}
		for i := range rows {
			rows[i].Position = next + i
		}
		return tx.Create(&rows).Error
	})
}

func (s *ChatHistoryStore) Delete(ctx context.Context, sessionID string) error {
	err := s.pg.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&ChatMessage{}).Error
	return TranslateError(err)
}
