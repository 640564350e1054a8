package services

import (
	"context"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// Store is the durable key/value contract. Get reports ok=false for an absent
// key; absence is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Catalog is the read-only remote source of posts and comments.
type Catalog interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	ListComments(ctx context.Context, postID int64) ([]domain.Comment, error)
}
