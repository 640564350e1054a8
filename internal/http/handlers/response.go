// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints: the error envelope, the success helpers and the translation of
// service errors into HTTP results.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with the request-scoped logger.
//   - `failService()` maps service sentinels to status and code, so handlers
//     never switch on errors themselves.
//   - A mutation that was applied but not persisted is a success carrying a
//     `warning` field, not an error.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-feed-sync/internal/http/middleware"
	"github.com/tbourn/go-feed-sync/internal/services"
)

// Retry hints (seconds) sent with retryable failures.
const (
	retryAfterCatalog = 5
	retryAfterHydrate = 1
	retryAfterStore   = 2
)

const warningNotPersisted = "change applied but not saved; it will be lost on restart"

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"post not found"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService translates a service error into an HTTP error response.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyComment):
		fail(c, http.StatusBadRequest, ErrCodeEmptyComment, "comment must not be empty")
	case errors.Is(err, services.ErrNoIdentity):
		fail(c, http.StatusUnauthorized, ErrCodeNoIdentity, "sign in to comment")
	case errors.Is(err, services.ErrNotHydrated):
		c.Header("Retry-After", strconv.Itoa(retryAfterHydrate))
		fail(c, http.StatusServiceUnavailable, ErrCodeNotHydrated, "state is still loading")
	case errors.Is(err, services.ErrCatalogUnavailable):
		c.Header("Retry-After", strconv.Itoa(retryAfterCatalog))
		fail(c, http.StatusBadGateway, ErrCodeCatalogUnavailable, services.FeedLoadError)
	case errors.Is(err, services.ErrNotPersisted):
		c.Header("Retry-After", strconv.Itoa(retryAfterStore))
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "could not save changes")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// persistWarning returns the warning for a mutation whose commit failed, ""
// when err is nil, and ok=false when err is anything else (already answered).
func persistWarning(c *gin.Context, err error) (warning string, handled bool) {
	switch {
	case err == nil:
		return "", true
	case errors.Is(err, services.ErrNotPersisted):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("mutation not persisted")
		return warningNotPersisted, true
	default:
		failService(c, err)
		return "", false
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
