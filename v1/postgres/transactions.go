package postgres

import (
	"context"

	"gorm.io/gorm"
)

// Transaction runs fn in a transaction on the current connection. An error
// from fn rolls back, nil commits.
//
//	err := pg.Transaction(ctx, func(tx *gorm.DB) error {
//		if err := tx.Exec("DELETE FROM chat_messages WHERE session_id = ?", id).Error; err != nil {
//			return err
//		}
//		return tx.Create(&msgs).Error
//	})
func (p *Postgres) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return TranslateError(p.DB().WithContext(ctx).Transaction(fn))
}
