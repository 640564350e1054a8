// Package repo implements the durable key/value store behind the
// synchronization engine, backed by GORM. This file provides repository
// helpers for recorded Idempotency-Key responses, so retried mutations are
// replayed instead of re-applied even across restarts.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// ErrDuplicate indicates that a live replay record already exists for the key.
var ErrDuplicate = errors.New("duplicate")

// GetReplay returns the non-expired record stored under key, or ErrNotFound.
func GetReplay(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.ReplayRecord, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ReplayRecord
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now.UTC()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateReplay inserts rec, first dropping an expired row under the same key.
// A live row under the key yields ErrDuplicate.
func CreateReplay(ctx context.Context, db *gorm.DB, rec *domain.ReplayRecord) error {
	if strings.TrimSpace(rec.Key) == "" {
		return ErrEmptyKey
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Body == nil {
		rec.Body = []byte{}
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ? AND expires_at <= ?", rec.Key, rec.CreatedAt).
			Delete(&domain.ReplayRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Create(rec).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// PurgeExpiredReplays deletes every record that expired at or before now and
// returns how many rows went away.
func PurgeExpiredReplays(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.ReplayRecord{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations;
	// pgx reports SQLSTATE 23505.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "sqlstate 23505")
}
