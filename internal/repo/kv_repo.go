// Package repo implements the durable key/value store behind the
// synchronization engine, backed by GORM. This file provides the key/value
// repository functions and the KVStore adapter that satisfies the store
// contract consumed by the services package.
//
// All functions are context-aware and accept a *gorm.DB handle, following
// the "thin repository" approach: no business logic, only persistence.
//
// Error semantics:
//   - A missing key is not an error for Get: it reports ok=false.
//   - Removing a missing key succeeds.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// ErrNotFound is returned by GetEntry when a key does not exist.
// It aliases gorm.ErrRecordNotFound for consistency with GORM callers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrEmptyKey is returned when a blank key is passed to any operation.
var ErrEmptyKey = errors.New("key must not be empty")

// GetEntry fetches the row stored under key, or ErrNotFound.
func GetEntry(ctx context.Context, db *gorm.DB, key string) (*domain.KVEntry, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptyKey
	}
	var e domain.KVEntry
	err := db.WithContext(ctx).
		Where(map[string]any{"key": key}).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutEntry inserts or overwrites the value stored under key and stamps
// UpdatedAt in UTC.
func PutEntry(ctx context.Context, db *gorm.DB, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	e := &domain.KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(e).Error
}

// DeleteEntry removes key. Deleting a key that does not exist is a no-op.
func DeleteEntry(ctx context.Context, db *gorm.DB, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return db.WithContext(ctx).
		Where(map[string]any{"key": key}).
		Delete(&domain.KVEntry{}).Error
}

// KVStore adapts the repository functions to the get/set/remove store
// contract. It is safe for concurrent use to the extent the *gorm.DB is.
type KVStore struct {
	DB *gorm.DB
}

// NewKVStore returns a KVStore bound to db.
func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{DB: db}
}

// Get returns the value under key. ok is false when the key is absent.
func (s *KVStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	e, err := GetEntry(ctx, s.DB, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return PutEntry(ctx, s.DB, key, value)
}

// Remove deletes key.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	return DeleteEntry(ctx, s.DB, key)
}
