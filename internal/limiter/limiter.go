// Package limiter defines interfaces and implementations for guest session rate limiting.
package limiter

import (
	"context"
	"time"
)

// Limiter caps how often new guest sessions may be minted per client.
// Existing sessions are never affected.
type Limiter interface {
	// Allow reports whether minting is currently allowed and optional retry-after.
	Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
	// Minted records a freshly minted session; may place a temporary block.
	Minted(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
}
