// Package catalog is the read-only client for the remote post catalog.
//
// It speaks the dummyjson-style API used by the feed:
//
//	GET {base}/posts?limit=N         -> {"posts":[...],"total":..,"skip":..,"limit":..}
//	GET {base}/posts/{id}/comments   -> {"comments":[...],"total":..,"skip":..,"limit":..}
//
// Payloads are parsed against a strict schema at the boundary. An unknown
// field, a missing required field or an out-of-range value fails the whole
// fetch with ErrInvalidPayload; the caller then keeps its previous state.
//
// Requests are throttled client-side with a token bucket and instrumented
// with OpenTelemetry spans and Prometheus metrics.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

const (
	// DefaultBaseURL is the public catalog the feed was built against.
	DefaultBaseURL = "https://dummyjson.com"
	// DefaultPostLimit is the number of posts requested per refresh.
	DefaultPostLimit = 20

	maxBodyBytes = 8 << 20
)

var (
	// ErrInvalidPayload reports a response that does not match the schema.
	ErrInvalidPayload = errors.New("invalid catalog payload")
	// ErrUnexpectedStatus reports a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected catalog status")
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	PostLimit int
	Timeout   time.Duration
	// RPS is the sustained request rate; <= 0 disables throttling.
	RPS   float64
	Burst int
	// HTTPClient overrides the transport (tests use httptest clients).
	HTTPClient *http.Client
}

// Client fetches posts and comments from the remote catalog. It is safe for
// concurrent use.
type Client struct {
	baseURL   string
	postLimit int
	http      *http.Client
	limiter   *rate.Limiter
}

// New constructs a Client from opts.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	limit := opts.PostLimit
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{baseURL: base, postLimit: limit, http: hc, limiter: lim}
}

// ListPosts returns the current post list.
func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.postLimit))

	var (
		body  wirePostList
		posts []domain.Post
	)
	err := c.getJSON(ctx, "list_posts", "/posts", q, &body, func() (err error) {
		posts, err = body.toDomain()
		return err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListComments returns the remote comments of postID.
func (c *Client) ListComments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	var (
		body     wireCommentList
		comments []domain.Comment
	)
	path := "/posts/" + strconv.FormatInt(postID, 10) + "/comments"
	err := c.getJSON(ctx, "list_comments", path, nil, &body, func() (err error) {
		comments, err = body.toDomain(postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// getJSON performs a throttled GET, strictly decodes the body into dst and
// runs convert on the decoded value.
func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, dst any, convert func() error) (err error) {
	tr := otel.Tracer("catalog/Client")
	ctx, span := tr.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("catalog.path", path)),
	)
	start := time.Now()
	result := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		catalogLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		catalogRequests.WithLabelValues(op, result).Inc()
	}()

	if err = c.limiter.Wait(ctx); err != nil {
		result = "throttled"
		return fmt.Errorf("catalog %s: %w", op, err)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		result = "error"
		return fmt.Errorf("catalog %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		result = "error"
		return fmt.Errorf("catalog %s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		result = "status"
		return fmt.Errorf("catalog %s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err = dec.Decode(dst); err != nil {
		result = "invalid"
		return fmt.Errorf("catalog %s: %w: %v", op, ErrInvalidPayload, err)
	}
	if dec.More() {
		result = "invalid"
		return fmt.Errorf("catalog %s: %w: trailing data", op, ErrInvalidPayload)
	}
	if err = convert(); err != nil {
		result = "invalid"
		return fmt.Errorf("catalog %s: %w", op, err)
	}
	return nil
}
