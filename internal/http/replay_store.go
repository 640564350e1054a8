package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-feed-sync/internal/domain"
	"github.com/tbourn/go-feed-sync/internal/http/middleware"
	"github.com/tbourn/go-feed-sync/internal/repo"
)

const replayDBTimeout = 2 * time.Second

// DBReplayStore is a middleware.ReplayStore backed by the SQL store, so a
// retry after a restart is still replayed. Reservations for requests in
// progress are process-local. Store errors degrade to "not recorded": the
// request runs normally and the error is logged.
type DBReplayStore struct {
	db  *gorm.DB
	ttl time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}

	// get reads a stored record; tests replace it to observe lookups.
	get func(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.ReplayRecord, error)
}

// NewDBReplayStore keeps responses for ttl (default 24h).
func NewDBReplayStore(db *gorm.DB, ttl time.Duration) *DBReplayStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DBReplayStore{db: db, ttl: ttl, inFlight: make(map[string]struct{}), get: repo.GetReplay}
}

// Begin reserves key under the lock and reads the store outside it. A found
// record drops the reservation again.
func (s *DBReplayStore) Begin(key string, now time.Time) (*middleware.StoredResponse, bool) {
	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		return nil, true
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), replayDBTimeout)
	defer cancel()
	rec, err := s.get(ctx, s.db, key, now)
	switch {
	case err == nil:
		s.Release(key)
		return &middleware.StoredResponse{
			Status:      rec.Status,
			ContentType: rec.ContentType,
			Body:        rec.Body,
		}, false
	case !errors.Is(err, repo.ErrNotFound):
		log.Warn().Err(err).Str("component", "replay_store").Msg("replay lookup failed")
	}
	return nil, false
}

// Complete records resp before dropping the reservation.
func (s *DBReplayStore) Complete(key string, resp middleware.StoredResponse, now time.Time) {
	defer s.Release(key)

	ctx, cancel := context.WithTimeout(context.Background(), replayDBTimeout)
	defer cancel()
	err := repo.CreateReplay(ctx, s.db, &domain.ReplayRecord{
		Key:         key,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.UTC().Add(s.ttl),
	})
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Warn().Err(err).Str("component", "replay_store").Msg("replay not recorded")
	}
}

func (s *DBReplayStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// Sweep purges expired records every interval until ctx is done.
func (s *DBReplayStore) Sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredReplays(ctx, s.db, now)
			if err != nil {
				log.Warn().Err(err).Str("component", "replay_store").Msg("replay purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired replays purged")
			}
		}
	}
}
