// Package users is the credential store: user documents keyed by id with
// unique username and email.
package users

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

// Both match common.ErrorAlreadyExists.
var (
	ErrDuplicateUsername = fmt.Errorf("username %w", common.ErrorAlreadyExists)
	ErrDuplicateEmail    = fmt.Errorf("email %w", common.ErrorAlreadyExists)
)

// Repository lookups return common.ErrorNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update sets the fields named by p on the user with the given id. An
	// empty patch writes nothing.
	Update(ctx context.Context, id string, p Patch) error
	// TouchLastActive sets last_active in a single write.
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

// Patch names the fields Update writes. Nil fields are left as stored, so
// concurrent writes to other fields (last_active, for one) survive.
type Patch struct {
	Role           *models.Role
	Fullname       *string
	Username       *string
	Email          *string
	EmailVerified  *bool
	PhoneNumber    *string
	Gender         *models.Gender
	BirthDate      *string
	ProfilePicture *string
	PasswordDigest *string

	UpdatedAt time.Time
	UpdatedBy string
}

// apply copies the set fields onto u.
func (p Patch) apply(u *models.User) {
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Fullname != nil {
		u.Fullname = *p.Fullname
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.BirthDate != nil {
		u.BirthDate = *p.BirthDate
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.PasswordDigest != nil {
		u.PasswordDigest = *p.PasswordDigest
	}
	if !p.UpdatedAt.IsZero() {
		u.UpdatedAt = p.UpdatedAt
	}
	if p.UpdatedBy != "" {
		u.UpdatedBy = p.UpdatedBy
	}
}
