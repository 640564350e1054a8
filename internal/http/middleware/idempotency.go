// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for unsafe methods. Toggling
// a favourite is not idempotent (every call flips), so a client retrying a
// request whose response was lost would flip twice. With a key, the first
// successful response is recorded and replayed verbatim for retries within
// the TTL, without running the handler again.
//
// Flow for a request carrying Idempotency-Key:
//   - invalid key: 400 bad_idempotency_key
//   - a stored response exists: replayed, marked with Idempotent-Replayed,
//     and exempted from rate limiting
//   - the same key is still being processed: 409 conflict
//   - otherwise the handler runs; a 2xx response is stored
package middleware

import (
	"bytes"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplayed is set on responses served from the replay store.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated key stored by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response was served from the replay store.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// StoredResponse is a recorded response.
type StoredResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// ReplayStore records responses by scoped key.
type ReplayStore interface {
	// Begin returns the stored response for key, or reserves key for the
	// caller. inFlight is true when another request holds the reservation.
	Begin(key string, now time.Time) (stored *StoredResponse, inFlight bool)
	// Complete stores resp under a reserved key and releases the reservation.
	Complete(key string, resp StoredResponse, now time.Time)
	// Release drops a reservation without storing anything.
	Release(key string)
}

// IdempotencyOptions configures Idempotency.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; defaults to ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Store holds recorded responses. Required.
	Store ReplayStore
}

// Idempotency returns the middleware. Safe methods and requests without the
// header pass through untouched.
func Idempotency(opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       CodeBadIdempotencyKey,
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		// Keys are scoped to the target so one key cannot replay another
		// endpoint's response.
		scoped := c.Request.Method + " " + c.Request.URL.Path + "|" + key

		stored, inFlight := opts.Store.Begin(scoped, time.Now())
		switch {
		case stored != nil:
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotentReplayed, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		case inFlight:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       CodeConflict,
				"message":    "a request with this Idempotency-Key is in progress",
			})
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		completed := false
		defer func() {
			if !completed {
				opts.Store.Release(scoped)
			}
		}()

		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			opts.Store.Complete(scoped, StoredResponse{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        append([]byte(nil), rec.body.Bytes()...),
			}, time.Now())
			completed = true
		}
	}
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// recordingWriter tees the response body.
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// MemoryReplayStore is an in-process ReplayStore with a TTL and a size cap.
type MemoryReplayStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	max      int
	entries  map[string]replayEntry
	inFlight map[string]struct{}
}

type replayEntry struct {
	resp    StoredResponse
	expires time.Time
}

// NewMemoryReplayStore keeps responses for ttl (default 24h) and at most max
// entries (default 10000); when full, expired entries are dropped first and
// then the entry closest to expiry.
func NewMemoryReplayStore(ttl time.Duration, max int) *MemoryReplayStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if max <= 0 {
		max = 10000
	}
	return &MemoryReplayStore{
		ttl:      ttl,
		max:      max,
		entries:  make(map[string]replayEntry),
		inFlight: make(map[string]struct{}),
	}
}

func (s *MemoryReplayStore) Begin(key string, now time.Time) (*StoredResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		if now.Before(e.expires) {
			resp := e.resp
			return &resp, false
		}
		delete(s.entries, key)
	}
	if _, busy := s.inFlight[key]; busy {
		return nil, true
	}
	s.inFlight[key] = struct{}{}
	return nil, false
}

func (s *MemoryReplayStore) Complete(key string, resp StoredResponse, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, key)
	if len(s.entries) >= s.max {
		s.evict(now)
	}
	s.entries[key] = replayEntry{resp: resp, expires: now.Add(s.ttl)}
}

func (s *MemoryReplayStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// Len reports the number of stored responses.
func (s *MemoryReplayStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evict runs under s.mu.
func (s *MemoryReplayStore) evict(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	if len(s.entries) < s.max {
		return
	}
	var (
		oldest    string
		oldestExp time.Time
	)
	for k, e := range s.entries {
		if oldest == "" || e.expires.Before(oldestExp) {
			oldest, oldestExp = k, e.expires
		}
	}
	delete(s.entries, oldest)
}
