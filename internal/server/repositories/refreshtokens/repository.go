// Package refreshtokens is the token ledger: issued refresh tokens keyed by
// their opaque id.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	// Find returns common.ErrorNotFound for an unknown id.
	Find(ctx context.Context, id string) (*models.RefreshToken, error)
	// Delete removes the token atomically and returns common.ErrorNotFound
	// if it was already gone. Rotation relies on this to stay single-use.
	Delete(ctx context.Context, id string) error
	DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}
