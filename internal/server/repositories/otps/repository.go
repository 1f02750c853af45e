// Package otps is the OTP ledger: one-time codes per owner with a verified
// flag and creation time.
package otps

import (
	"context"

	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

// Repository lookups return common.ErrorNotFound when nothing matches.
type Repository interface {
	// Create returns common.ErrorAlreadyExists when the owner already has
	// an unverified code.
	Create(ctx context.Context, otp *models.Otp) error
	// GetLatestByOwner returns the newest code regardless of verified.
	GetLatestByOwner(ctx context.Context, ownerID string) (*models.Otp, error)
	GetUnverifiedByOwner(ctx context.Context, ownerID string) (*models.Otp, error)
	GetByID(ctx context.Context, id string) (*models.Otp, error)
	Update(ctx context.Context, otp *models.Otp) error
	Delete(ctx context.Context, id string) error
	DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}
