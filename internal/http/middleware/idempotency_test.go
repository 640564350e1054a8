package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHelpers_GetIdempotencyKey_IsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("expected GetIdempotencyKey to be absent for non-string value")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
}

// toggleEngine mounts a non-idempotent handler that flips a flag per call.
func toggleEngine(store ReplayStore, calls *int32) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Idempotency(IdempotencyOptions{Store: store}))
	r.POST("/favourites/:id/toggle", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(http.StatusOK, gin.H{"favourite": n%2 == 1})
	})
	r.POST("/fail", func(c *gin.Context) {
		atomic.AddInt32(calls, 1)
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "store_unavailable"})
	})
	r.GET("/ping", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func post(r http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	var calls int32
	store := NewMemoryReplayStore(time.Minute, 0)
	r := toggleEngine(store, &calls)

	first := post(r, "/favourites/3/toggle", "k-1")
	second := post(r, "/favourites/3/toggle", "k-1")

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("codes: %d %d", first.Code, second.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
	if !strings.Contains(second.Body.String(), `"favourite":true`) {
		t.Fatalf("unexpected body %q", second.Body.String())
	}
	if second.Header().Get(HeaderIdempotentReplayed) != "true" {
		t.Fatalf("missing replay marker")
	}
	if first.Header().Get(HeaderIdempotentReplayed) != "" {
		t.Fatalf("first response must not be marked as replay")
	}
	if ct := second.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("replayed content type %q", ct)
	}
}

func TestIdempotency_KeysAreScopedToPath(t *testing.T) {
	var calls int32
	r := toggleEngine(NewMemoryReplayStore(time.Minute, 0), &calls)

	post(r, "/favourites/3/toggle", "same")
	post(r, "/favourites/4/toggle", "same")
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func TestIdempotency_NoKeyAlwaysRuns(t *testing.T) {
	var calls int32
	r := toggleEngine(NewMemoryReplayStore(time.Minute, 0), &calls)

	post(r, "/favourites/3/toggle", "")
	w := post(r, "/favourites/3/toggle", "")
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
	if !strings.Contains(w.Body.String(), `"favourite":false`) {
		t.Fatalf("second toggle should flip back, got %q", w.Body.String())
	}
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	var calls int32
	store := NewMemoryReplayStore(time.Minute, 0)
	r := toggleEngine(store, &calls)

	post(r, "/fail", "k-2")
	w := post(r, "/fail", "k-2")
	if calls != 2 {
		t.Fatalf("failed response must not be replayed; handler ran %d times", calls)
	}
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d", w.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("store holds %d entries, want 0", store.Len())
	}
}

func TestIdempotency_InvalidKey(t *testing.T) {
	var calls int32
	r := toggleEngine(NewMemoryReplayStore(time.Minute, 0), &calls)

	for _, k := range []string{"has space", "semi;colon", strings.Repeat("a", 201)} {
		w := post(r, "/favourites/1/toggle", k)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: code=%d", k, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"bad_idempotency_key"`) {
			t.Fatalf("key %q: body=%q", k, w.Body.String())
		}
	}
	if calls != 0 {
		t.Fatalf("handler must not run for invalid keys")
	}
}

func TestIdempotency_SafeMethodsIgnoreHeader(t *testing.T) {
	var calls int32
	r := toggleEngine(NewMemoryReplayStore(time.Minute, 0), &calls)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderIdempotencyKey, "whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("GET should pass through untouched, code=%d", w.Code)
	}
}

func TestIdempotency_ReplayBypassesRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls int32
	r := gin.New()
	r.Use(Idempotency(IdempotencyOptions{Store: NewMemoryReplayStore(time.Minute, 0)}))
	r.Use(NewRateLimiter(0.0001, 1, KeyByClientIP()).Handler())
	r.POST("/x", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	if w := post(r, "/x", "k"); w.Code != http.StatusCreated {
		t.Fatalf("first: %d", w.Code)
	}
	if w := post(r, "/x", "k"); w.Code != http.StatusCreated {
		t.Fatalf("replay should bypass limiter, got %d", w.Code)
	}
	if w := post(r, "/x", "other"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("fresh key should be limited, got %d", w.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestMemoryReplayStore_InFlightAndRelease(t *testing.T) {
	s := NewMemoryReplayStore(time.Minute, 0)
	now := time.Now()

	if got, busy := s.Begin("k", now); got != nil || busy {
		t.Fatalf("first Begin should reserve")
	}
	if _, busy := s.Begin("k", now); !busy {
		t.Fatalf("second Begin should report in-flight")
	}
	s.Release("k")
	if _, busy := s.Begin("k", now); busy {
		t.Fatalf("Begin after Release should reserve again")
	}
	s.Complete("k", StoredResponse{Status: 200, Body: []byte("x")}, now)
	got, busy := s.Begin("k", now)
	if busy || got == nil || string(got.Body) != "x" {
		t.Fatalf("expected stored response, got %+v busy=%v", got, busy)
	}
}

func TestMemoryReplayStore_ExpiryAndCap(t *testing.T) {
	s := NewMemoryReplayStore(time.Second, 2)
	t0 := time.Now()

	for _, k := range []string{"a", "b"} {
		s.Begin(k, t0)
		s.Complete(k, StoredResponse{Status: 200}, t0)
	}
	s.Begin("c", t0.Add(time.Millisecond))
	s.Complete("c", StoredResponse{Status: 200}, t0.Add(time.Millisecond))
	if s.Len() != 2 {
		t.Fatalf("cap not enforced: len=%d", s.Len())
	}

	if got, _ := s.Begin("c", t0.Add(2*time.Second)); got != nil {
		t.Fatalf("expired entry must not be replayed")
	}
}

func TestIdempotency_ConcurrentDuplicateGetsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryReplayStore(time.Minute, 0)
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.Use(Idempotency(IdempotencyOptions{Store: store}))
	r.POST("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- post(r, "/slow", "dup") }()
	<-entered

	w := post(r, "/slow", "dup")
	if w.Code != http.StatusConflict {
		t.Fatalf("concurrent duplicate: code=%d", w.Code)
	}
	close(release)
	if first := <-done; first.Code != http.StatusOK {
		t.Fatalf("first: code=%d", first.Code)
	}
}
