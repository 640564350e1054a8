// Feed HTTP handlers.
//
// Handlers are transport-thin: they parse ids and payloads, call the services
// for anything that mutates or synchronizes, and read the entity cache
// directly for projections. Nothing here talks to the durable store or the
// remote catalog.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/domain"
	"github.com/tbourn/go-feed-sync/internal/utils"
)

//
// Service contracts (context-aware)
//

// SyncService refreshes remote-owned data from the catalog.
type SyncService interface {
	// RefreshPosts replaces the cached post list with a fresh catalog page.
	RefreshPosts(ctx context.Context) error
	// RefreshComments replaces the cached comments of one post.
	RefreshComments(ctx context.Context, postID int64) error
}

// MutationService applies user intents to the cache and persists them.
type MutationService interface {
	ToggleFavourite(ctx context.Context, postID int64) (bool, error)
	AddComment(ctx context.Context, postID int64, body, authorUsername string) (domain.Comment, error)
}

// SessionService manages the locally stored login.
type SessionService interface {
	Current(ctx context.Context) (*domain.Session, error)
	Login(ctx context.Context, username, email string) (*domain.Session, error)
	Logout(ctx context.Context) error
}

// Searcher filters cached posts by a free-text query.
type Searcher interface {
	Search(q string) []domain.Post
}

//
// Handler wiring
//

// Handlers groups the feed, comment, favourite, session and event endpoints.
type Handlers struct {
	cache   *cache.Cache
	syncSvc SyncService
	mutSvc  MutationService
	sessSvc SessionService
	search  Searcher
	events  EventOptions
}

// New constructs a Handlers instance bound to the cache and services.
func New(c *cache.Cache, syncSvc SyncService, mutSvc MutationService, sessSvc SessionService, search Searcher) *Handlers {
	return &Handlers{
		cache:   c,
		syncSvc: syncSvc,
		mutSvc:  mutSvc,
		sessSvc: sessSvc,
		search:  search,
		events:  defaultEventOptions(),
	}
}

// WithEventOptions overrides the /events stream settings. Zero fields keep
// their defaults.
func (h *Handlers) WithEventOptions(o EventOptions) *Handlers {
	h.events = o.withDefaults()
	return h
}

// parsePostID parses the :id path parameter; on failure the request is answered
// with 400 and false is returned.
func parsePostID(c *gin.Context) (int64, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "post id must be a positive integer")
		return 0, false
	}
	return id, true
}
