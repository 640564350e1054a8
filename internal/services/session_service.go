package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// SessionService keeps the signed-in identity under the "auth" key. It only
// supplies the author of new comments; nothing is authorized against it.
type SessionService struct {
	Store Store
}

// NewSessionService returns a SessionService over store.
func NewSessionService(store Store) *SessionService {
	return &SessionService{Store: store}
}

// Current returns the stored session, or nil when none is stored or the
// stored value cannot be parsed. Store read failures are returned.
func (s *SessionService) Current(ctx context.Context) (*domain.Session, error) {
	raw, ok, err := s.Store.Get(ctx, domain.KeyAuth)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.Username() == "" {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("stored session unusable; treating as signed out")
		return nil, nil
	}
	return &sess, nil
}

// Login stores a new session for username. Any non-blank username is
// accepted; the token is random.
func (s *SessionService) Login(ctx context.Context, username, email string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNoIdentity
	}
	sess := &domain.Session{
		User: domain.SessionUser{
			ID:       userID(username),
			Username: username,
			Email:    strings.TrimSpace(email),
		},
		Token: uuid.NewString(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Set(ctx, domain.KeyAuth, string(raw)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return sess, nil
}

// Logout removes the stored session. Logging out twice is not an error.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.Store.Remove(ctx, domain.KeyAuth); err != nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// userID derives a stable positive id from the username.
func userID(username string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(username)))
	return int64(h.Sum64() >> 1)
}
