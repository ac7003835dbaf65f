// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSession indicates a guest token that matches no stored guest.
	ErrInvalidSession = errors.New("invalid guest session")

	// ErrVariantNotFound indicates an add request for an unknown product variant.
	ErrVariantNotFound = errors.New("product variant not found")

	// ErrOutOfStock indicates the requested variant is flagged unavailable.
	ErrOutOfStock = errors.New("out of stock")

	// ErrRateLimited indicates a temporary block on minting new guest sessions.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., token collision).
	ErrAlreadyExists = errors.New("already exists")
)
