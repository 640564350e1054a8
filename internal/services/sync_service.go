// Package services – SyncService
//
// SyncService bridges the entity cache to the durable store and the remote
// catalog. It hydrates favourites and comments at startup, refreshes posts
// and per-post comments on demand, and commits whole collections back to the
// store after every mutation (write-through, one write per change).
//
// Failures never clear the cache: a failed fetch leaves the previous posts in
// place and a failed commit leaves the in-memory change applied.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/domain"
)

// FeedLoadError is the user-visible message recorded on a failed refresh.
const FeedLoadError = "Failed to load posts"

// HydrationOutcome describes what happened to one key during Hydrate.
type HydrationOutcome string

const (
	HydrationLoaded      HydrationOutcome = "loaded"
	HydrationAbsent      HydrationOutcome = "absent"
	HydrationCorrupt     HydrationOutcome = "corrupt"
	HydrationUnavailable HydrationOutcome = "unavailable"
)

// HydrationReport is the per-key result of Hydrate.
type HydrationReport struct {
	Favourites HydrationOutcome `json:"favourites"`
	Comments   HydrationOutcome `json:"comments"`
}

// SyncService is the synchronization engine. Construct it with
// NewSyncService.
type SyncService struct {
	Cache   *cache.Cache
	Store   Store
	Catalog Catalog

	// IDs issues local comment ids; Hydrate raises it past every stored id.
	IDs *IDGenerator

	// RequireHydration makes RefreshComments fail with ErrNotHydrated until
	// Hydrate has finished, so an early refresh cannot overwrite the stored
	// comments of other posts.
	RequireHydration bool

	// one lock per store key; commits to different keys never contend
	favMu      sync.Mutex
	commentsMu sync.Mutex

	hydrated  atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// NewSyncService wires a SyncService around c.
func NewSyncService(c *cache.Cache, store Store, cat Catalog) *SyncService {
	return &SyncService{
		Cache:   c,
		Store:   store,
		Catalog: cat,
		IDs:     NewIDGenerator(),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first Hydrate has finished.
func (s *SyncService) Ready() <-chan struct{} { return s.ready }

// Hydrated reports whether Hydrate has finished at least once.
func (s *SyncService) Hydrated() bool { return s.hydrated.Load() }

// Hydrate restores favourites and comments from the store. The two reads are
// independent and run concurrently. An absent key leaves the cache default;
// an unreadable or unparsable key is logged and also leaves the default.
// Hydrate never fails.
//
// Loading is a total replace: a mutation applied before Hydrate lands is
// overwritten.
func (s *SyncService) Hydrate(ctx context.Context) HydrationReport {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Hydrate")
	defer span.End()

	var (
		rep HydrationReport
		g   errgroup.Group
	)
	g.Go(func() error {
		var ids []int64
		rep.Favourites = s.load(ctx, domain.KeyFavourites, &ids)
		if rep.Favourites == HydrationLoaded {
			s.Cache.LoadFavourites(dedupe(ids))
		}
		return nil
	})
	g.Go(func() error {
		var m domain.CommentsByPost
		rep.Comments = s.load(ctx, domain.KeyComments, &m)
		if rep.Comments == HydrationLoaded {
			s.Cache.LoadComments(m)
			for _, list := range m {
				for _, c := range list {
					s.IDs.Observe(c.ID)
				}
			}
		}
		return nil
	})
	_ = g.Wait()

	span.SetAttributes(
		attribute.String("hydration.favourites", string(rep.Favourites)),
		attribute.String("hydration.comments", string(rep.Comments)),
	)

	s.hydrated.Store(true)
	s.readyOnce.Do(func() { close(s.ready) })
	return rep
}

func (s *SyncService) load(ctx context.Context, key string, dst any) (outcome HydrationOutcome) {
	log := zerolog.Ctx(ctx)
	defer func() {
		hydrationLoads.WithLabelValues(key, string(outcome)).Inc()
	}()

	raw, ok, err := s.Store.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("key", key).Msg("hydrate: store read failed, using defaults")
		return HydrationUnavailable
	case !ok:
		return HydrationAbsent
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("hydrate: snapshot unparsable, using defaults")
		return HydrationCorrupt
	}
	return HydrationLoaded
}

// RefreshPosts replaces the cached posts with the catalog's list. On failure
// the previous posts stay in place, the feed status carries a retryable
// error and the returned error wraps ErrCatalogUnavailable.
func (s *SyncService) RefreshPosts(ctx context.Context) error {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "RefreshPosts")
	defer span.End()

	s.Cache.SetFeedLoading()
	posts, err := s.Catalog.ListPosts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list posts")
		s.Cache.SetFeedError(FeedLoadError)
		zerolog.Ctx(ctx).Warn().Err(err).Msg("refresh posts failed; keeping previous posts")
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	s.Cache.ReplacePosts(posts)
	s.Cache.SetFeedRefreshed(time.Now())
	span.SetAttributes(attribute.Int("posts.count", len(posts)))
	return nil
}

// RefreshComments overwrites the cached comments of postID with the
// catalog's view, dropping any local comment the catalog does not return,
// and commits the comments mapping.
func (s *SyncService) RefreshComments(ctx context.Context, postID int64) error {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "RefreshComments")
	defer span.End()
	span.SetAttributes(attribute.Int64("post.id", postID))

	if s.RequireHydration && !s.Hydrated() {
		return ErrNotHydrated
	}

	comments, err := s.Catalog.ListComments(ctx, postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list comments")
		zerolog.Ctx(ctx).Warn().Err(err).Int64("post_id", postID).Msg("refresh comments failed; keeping previous comments")
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	s.Cache.SetComments(postID, comments)
	return s.CommitComments(ctx)
}

// CommitFavourites writes the entire current favourites set to the store.
func (s *SyncService) CommitFavourites(ctx context.Context) error {
	s.favMu.Lock()
	defer s.favMu.Unlock()
	// Read inside the lock so the last commit to land carries the latest set.
	return s.commit(ctx, domain.KeyFavourites, s.Cache.Favourites())
}

// CommitComments writes the entire current comments mapping to the store.
func (s *SyncService) CommitComments(ctx context.Context) error {
	s.commentsMu.Lock()
	defer s.commentsMu.Unlock()
	return s.commit(ctx, domain.KeyComments, s.Cache.AllComments())
}

func (s *SyncService) commit(ctx context.Context, key string, v any) error {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "commit")
	defer span.End()
	span.SetAttributes(attribute.String("store.key", key))

	raw, err := json.Marshal(v)
	if err == nil {
		// A commit is not abandoned when the caller goes away.
		err = s.Store.Set(context.WithoutCancel(ctx), key, string(raw))
	}
	if err != nil {
		storeCommits.WithLabelValues(key, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "store set")
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("commit failed; in-memory state kept")
		return fmt.Errorf("commit %s: %w: %w", key, ErrNotPersisted, err)
	}
	storeCommits.WithLabelValues(key, "ok").Inc()
	return nil
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
