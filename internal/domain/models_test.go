package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestKVEntry_TableNameAndMigration(t *testing.T) {
	if (KVEntry{}).TableName() != "kv_entries" {
		t.Fatalf("KVEntry.TableName() = %q; want %q", (KVEntry{}).TableName(), "kv_entries")
	}

	db := newDomainDB(t)
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasTable(&KVEntry{}) {
		t.Fatalf("expected kv_entries table")
	}

	now := time.Now().UTC()
	if err := db.Create(&KVEntry{Key: KeyFavourites, Value: "[1,2]", UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Primary key must reject a second row with the same key.
	if err := db.Create(&KVEntry{Key: KeyFavourites, Value: "[]", UpdatedAt: now}).Error; err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestReplayRecord_TableNameAndMigration(t *testing.T) {
	if (ReplayRecord{}).TableName() != "replay_records" {
		t.Fatalf("ReplayRecord.TableName() = %q", (ReplayRecord{}).TableName())
	}

	db := newDomainDB(t)
	if err := db.AutoMigrate(&ReplayRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	rec := &ReplayRecord{Key: "POST /x|k", Status: 200, Body: []byte("{}"), CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got ReplayRecord
	if err := db.First(&got, "key = ?", "POST /x|k").Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Status != 200 || string(got.Body) != "{}" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestCommentsByPost_JSONUsesStringKeys(t *testing.T) {
	m := CommentsByPost{
		5: {{ID: 2, Body: "b", PostID: 5, User: CommentUser{Username: "bob"}}},
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string][]map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["5"]; !ok {
		t.Fatalf("expected key \"5\" in %s", b)
	}

	var back CommentsByPost
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, m) {
		t.Fatalf("round trip mismatch: %#v vs %#v", back, m)
	}
}

func TestClone_IsDeep(t *testing.T) {
	p := Post{ID: 1, Tags: []string{"a", "b"}}
	c := p.Clone()
	c.Tags[0] = "z"
	if p.Tags[0] != "a" {
		t.Fatalf("Post.Clone shares tags")
	}

	m := CommentsByPost{1: {{ID: 1}}}
	mc := m.Clone()
	mc[1][0].ID = 99
	mc[2] = nil
	if m[1][0].ID != 1 || len(m) != 1 {
		t.Fatalf("CommentsByPost.Clone shares state: %#v", m)
	}

	var nilMap CommentsByPost
	if got := nilMap.Clone(); got == nil || len(got) != 0 {
		t.Fatalf("nil clone = %#v; want empty map", got)
	}
}

func TestSession_Username(t *testing.T) {
	var s *Session
	if s.Username() != "" {
		t.Fatalf("nil session username should be empty")
	}
	s = &Session{User: SessionUser{Username: "  emilys "}}
	if s.Username() != "emilys" {
		t.Fatalf("Username() = %q", s.Username())
	}
}
