package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

func newKVRepoDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("kv_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestPutEntry_Error_NoTable(t *testing.T) {
	db := newKVRepoDB(t, false)
	if err := PutEntry(context.Background(), db, "k", "v"); err == nil {
		t.Fatalf("expected error writing without table")
	}
}

func TestPutEntry_InsertThenOverwrite(t *testing.T) {
	db := newKVRepoDB(t, true)
	ctx := context.Background()

	if err := PutEntry(ctx, db, domain.KeyFavourites, "[3,7]"); err != nil {
		t.Fatalf("PutEntry #1: %v", err)
	}
	first, err := GetEntry(ctx, db, domain.KeyFavourites)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if first.Value != "[3,7]" || first.UpdatedAt.IsZero() {
		t.Fatalf("unexpected entry: %+v", first)
	}

	if err := PutEntry(ctx, db, domain.KeyFavourites, "[3,7,12]"); err != nil {
		t.Fatalf("PutEntry #2: %v", err)
	}
	second, err := GetEntry(ctx, db, domain.KeyFavourites)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if second.Value != "[3,7,12]" {
		t.Fatalf("expected overwrite, got %q", second.Value)
	}

	var count int64
	db.Model(&domain.KVEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single row after upsert, got %d", count)
	}
}

func TestGetEntry_NotFoundAndEmptyKey(t *testing.T) {
	db := newKVRepoDB(t, true)

	if _, err := GetEntry(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetEntry(context.Background(), db, "  "); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestDeleteEntry_RemovesAndIsIdempotent(t *testing.T) {
	db := newKVRepoDB(t, true)
	ctx := context.Background()

	if err := PutEntry(ctx, db, domain.KeyAuth, `{"token":"t"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := DeleteEntry(ctx, db, domain.KeyAuth); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := GetEntry(ctx, db, domain.KeyAuth); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key gone, got %v", err)
	}
	if err := DeleteEntry(ctx, db, domain.KeyAuth); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestKVStore_Contract(t *testing.T) {
	s := NewKVStore(newKVRepoDB(t, true))
	ctx := context.Background()

	if v, ok, err := s.Get(ctx, domain.KeyComments); err != nil || ok || v != "" {
		t.Fatalf("absent key: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := s.Set(ctx, domain.KeyComments, `{"5":[]}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := s.Get(ctx, domain.KeyComments); err != nil || !ok || v != `{"5":[]}` {
		t.Fatalf("after Set: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := s.Remove(ctx, domain.KeyComments); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, domain.KeyComments); ok {
		t.Fatalf("expected key removed")
	}
}

func TestKVStore_Get_PropagatesDBErrors(t *testing.T) {
	s := NewKVStore(newKVRepoDB(t, false))
	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error when table is missing")
	}
}
