// Package services – MutationService
//
// MutationService is the only sanctioned way to change favourites and
// comments. Every accepted call changes the cache first and then commits the
// whole affected collection through SyncService before returning.
//
// A commit failure is reported as ErrNotPersisted but never rolled back: the
// cache, and therefore every view, keeps the new state.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/domain"
)

// MutationService applies user actions to the cache and persists them.
type MutationService struct {
	Cache *cache.Cache
	Sync  *SyncService
	IDs   *IDGenerator

	// RequireHydration rejects mutations with ErrNotHydrated until
	// Sync.Hydrate has finished. Sync.RequireHydration turns the gate on as
	// well. When both are false, a mutation racing hydration can be erased
	// by the late load.
	RequireHydration bool
}

// NewMutationService builds a MutationService sharing the cache of sync.
func NewMutationService(sync *SyncService) *MutationService {
	return &MutationService{
		Cache: sync.Cache,
		Sync:  sync,
		IDs:   sync.IDs,
	}
}

// ToggleFavourite flips postID in the favourites set and commits the whole
// set. It reports whether postID is a favourite afterwards. The flip always
// happens and is always persisted; two calls restore the previous set.
func (s *MutationService) ToggleFavourite(ctx context.Context, postID int64) (bool, error) {
	tr := otel.Tracer("services/MutationService")
	ctx, span := tr.Start(ctx, "ToggleFavourite")
	defer span.End()
	span.SetAttributes(attribute.Int64("post.id", postID))

	if err := s.gate(); err != nil {
		return false, err
	}

	fav := s.Cache.ToggleFavourite(postID)
	span.SetAttributes(attribute.Bool("favourite", fav))
	return fav, s.Sync.CommitFavourites(ctx)
}

// AddComment prepends a new local comment to postID and commits the whole
// comments mapping. A blank body or a missing author is rejected before
// anything changes.
func (s *MutationService) AddComment(ctx context.Context, postID int64, body, authorUsername string) (domain.Comment, error) {
	tr := otel.Tracer("services/MutationService")
	ctx, span := tr.Start(ctx, "AddComment")
	defer span.End()
	span.SetAttributes(attribute.Int64("post.id", postID))

	if err := s.gate(); err != nil {
		return domain.Comment{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Comment{}, ErrEmptyComment
	}
	author := strings.TrimSpace(authorUsername)
	if author == "" {
		return domain.Comment{}, ErrNoIdentity
	}

	c := domain.Comment{
		ID:     s.IDs.Next(),
		Body:   body,
		PostID: postID,
		User:   domain.CommentUser{Username: author},
	}
	s.Cache.PrependComment(postID, c)
	span.SetAttributes(attribute.Int64("comment.id", c.ID))
	return c, s.Sync.CommitComments(ctx)
}

func (s *MutationService) gate() error {
	if (s.RequireHydration || s.Sync.RequireHydration) && !s.Sync.Hydrated() {
		return ErrNotHydrated
	}
	return nil
}
