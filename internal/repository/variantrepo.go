package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/model"
)

// VariantRepository reads product variant reference data. Variants are
// never written by this service.
type VariantRepository interface {
	// Get loads a variant by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Variant, error)
}
