package limiter

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter with a sliding window and lockout.
type PG struct {
	pool     pgxQuerier
	window   time.Duration
	maxMints int
	blockFor time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxMints int, blockFor time.Duration) *PG {
	return &PG{pool: pool, window: window, maxMints: maxMints, blockFor: blockFor}
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxMints int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxMints: maxMints, blockFor: blockFor}
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Allow reports whether minting is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM guest_limiter WHERE ip_hash=$1`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, ipHash).Scan(&blockedUntil)
	switch err {
	case nil:
		if blockedUntil.After(time.Now()) {
			return false, time.Until(blockedUntil), nil
		}
		return true, 0, nil
	case pgx.ErrNoRows:
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Minted records a minted session; counters older than the window reset.
// Returns blocked=true once the threshold is reached.
func (l *PG) Minted(ctx context.Context, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO guest_limiter (ip_hash, mint_count, blocked_until, updated_at)
VALUES ($1,1,'epoch',now())
ON CONFLICT (ip_hash) DO UPDATE
SET
  mint_count = CASE WHEN EXCLUDED.updated_at - guest_limiter.updated_at > $2::interval THEN 1 ELSE guest_limiter.mint_count + 1 END,
  updated_at = now()
RETURNING mint_count`
	var mints int
	if err := l.pool.QueryRow(ctx, q, ipHash, l.window).Scan(&mints); err != nil {
		return false, 0, err
	}
	if mints >= l.maxMints {
		blockUntil := time.Now().Add(l.blockFor)
		const upd = `UPDATE guest_limiter SET blocked_until=$2 WHERE ip_hash=$1`
		if _, err := l.pool.Exec(ctx, upd, ipHash, blockUntil); err != nil {
			return false, 0, err
		}
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
