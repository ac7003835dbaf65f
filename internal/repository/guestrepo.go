// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/ivolkov/cartd/internal/model"
)

// GuestRepository provides access to anonymous guest identities.
type GuestRepository interface {
	// Create inserts a new guest row.
	Create(ctx context.Context, g *model.Guest) error
	// GetByToken loads a guest by its session token.
	GetByToken(ctx context.Context, token string) (*model.Guest, error)
}
