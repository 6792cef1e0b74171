// Package services implements the reservation lifecycle: inline issuance,
// result selection, answer delivery, and the external completion callback.
// This file centralizes service-level error values so they can be returned
// consistently and mapped by the HTTP layer.
//
// Translation into user-facing text or HTTP status codes happens at the
// edges (notifier messages, handlers); these values never reach users raw.
package services

import (
	"errors"

	"github.com/tbourn/go-inline-answer-bot/internal/repo"
)

var (
	// ErrNotFound indicates that no reservation exists for the given id.
	ErrNotFound = errors.New("reservation not found")

	// ErrAccessDenied is returned when an identity is not on the allow-list.
	ErrAccessDenied = errors.New("identity not allowed")

	// ErrRateLimited is returned when an identity has used its 24h quota.
	ErrRateLimited = errors.New("usage limit reached")

	// ErrUpstream wraps Answer Provider failures, including timeouts.
	ErrUpstream = errors.New("answer provider failed")

	// ErrDelivery wraps chat transport send/edit failures.
	ErrDelivery = errors.New("delivery failed")

	// ErrBadRequest is returned for malformed callback payloads.
	ErrBadRequest = errors.New("bad request")
)

// mapStoreErr converts store sentinels into service errors.
func mapStoreErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
