// Package services holds the synchronization engine, the mutation API and
// the session helper that sit between the entity cache, the durable store and
// the remote catalog.
//
// This file centralizes the service-level error values. Handlers translate
// them into HTTP results; services never format user-facing messages.
package services

import "errors"

// Validation rejections. Nothing is changed or persisted when these are
// returned.
var (
	// ErrEmptyComment is returned when a comment body is blank after trimming.
	ErrEmptyComment = errors.New("comment body is empty")

	// ErrNoIdentity is returned when no authenticated username is available.
	ErrNoIdentity = errors.New("no authenticated user")

	// ErrNotHydrated is returned by gated mutations and comment refreshes while startup
	// hydration has not completed yet.
	ErrNotHydrated = errors.New("state not hydrated yet")
)

// Non-fatal failures.
var (
	// ErrNotPersisted reports a mutation that was applied in memory but could
	// not be written to the durable store. The in-memory change is kept.
	ErrNotPersisted = errors.New("change not persisted")

	// ErrCatalogUnavailable reports a failed catalog fetch. The previous
	// cache contents are left untouched.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)
