// Package wallets stores the per-user wallet created when a user registers.
package wallets

import (
	"context"

	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

type Repository interface {
	// Create returns common.ErrorAlreadyExists when the user already has one.
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByUser(ctx context.Context, userID string) (*models.Wallet, error)
	DeleteByUser(ctx context.Context, userID string) error
	EnsureIndexes(ctx context.Context) error
}
