// Package carts stores the per-user cart created when a user registers.
package carts

import (
	"context"

	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

type Repository interface {
	// Create returns common.ErrorAlreadyExists when the user already has one.
	Create(ctx context.Context, cart *models.Cart) error
	GetByUser(ctx context.Context, userID string) (*models.Cart, error)
	DeleteByUser(ctx context.Context, userID string) error
	EnsureIndexes(ctx context.Context) error
}
