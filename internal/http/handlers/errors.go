// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings returned in the `code` field
// of every error envelope. Generic codes mirror HTTP status semantics; the
// domain-specific ones name a service outcome clients are expected to branch
// on (for example retrying after catalog_unavailable).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "catalog_unavailable",
//	  "message": "Failed to load posts"
//	}
package handlers

import "github.com/tbourn/go-feed-sync/internal/http/middleware"

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = middleware.CodeInternal
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeEmptyComment       = "empty_comment"
	ErrCodeNoIdentity         = "no_identity"
	ErrCodeNotHydrated        = "not_hydrated"
	ErrCodeCatalogUnavailable = "catalog_unavailable"
	ErrCodeStoreUnavailable   = "store_unavailable"
)
