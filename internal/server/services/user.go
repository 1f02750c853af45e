package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/server/blobstore"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/carts"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/otps"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/users"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/wallets"
	"github.com/google/uuid"
)

const (
	MaxProfilePictureSize = 5 << 20
	profilePictureURLTTL  = 15 * time.Minute
)

var profilePictureTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Profile is the signed-in user's view of their account.
type Profile struct {
	models.Identity
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// ProfilePatch lists the fields UpdateProfile may change. Nil means keep.
type ProfilePatch struct {
	Fullname    *string `json:"fullname"`
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	Gender      *string `json:"gender"`
	BirthDate   *string `json:"birth_date"`
}

type UserService struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
	otps          otps.Repository
	carts         carts.Repository
	wallets       wallets.Repository
	hasher        PasswordHasher
	store         blobstore.Store
	logger        logging.Logger

	now   func() time.Time
	newID func() string
}

func NewUserService(m repomanager.RepositoryManager, hasher PasswordHasher, store blobstore.Store, logger logging.Logger) *UserService {
	return &UserService{
		users:         m.Users(),
		refreshTokens: m.RefreshTokens(),
		otps:          m.Otps(),
		carts:         m.Carts(),
		wallets:       m.Wallets(),
		hasher:        hasher,
		store:         store,
		logger:        logger.With("module", "users"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *UserService) GetMe(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	var p users.Patch

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			if err := s.ensureFree(ctx, user.ID, s.users.GetByUsername, username, ErrUsernameTaken); err != nil {
				return nil, err
			}
			user.Username = username
			p.Username = &user.Username
		}
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.ensureFree(ctx, user.ID, s.users.GetByEmail, email, ErrEmailTaken); err != nil {
				return nil, err
			}
			user.Email = email
			user.EmailVerified = false
			p.Email = &user.Email
			p.EmailVerified = &user.EmailVerified
		}
	}

	if patch.Gender != nil {
		g := models.Gender(*patch.Gender)
		if !g.Valid() {
			return nil, ErrInvalidGender
		}
		user.Gender = g
		p.Gender = &user.Gender
	}

	if patch.BirthDate != nil {
		if err := validateBirthDate(*patch.BirthDate); err != nil {
			return nil, err
		}
		user.BirthDate = *patch.BirthDate
		p.BirthDate = &user.BirthDate
	}

	if patch.Fullname != nil {
		user.Fullname = strings.TrimSpace(*patch.Fullname)
		p.Fullname = &user.Fullname
	}
	if patch.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*patch.PhoneNumber)
		p.PhoneNumber = &user.PhoneNumber
	}

	if err := s.save(ctx, user, p); err != nil {
		return nil, err
	}
	return s.profile(ctx, user), nil
}

func (s *UserService) CheckPassword(ctx context.Context, userID, password string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(password, user.PasswordDigest)
	if err != nil {
		return s.internal(ctx, "password verification failed", err, "user_id", user.ID)
	}
	if !ok {
		s.logger.Warn(ctx, "password check failed", "user_id", user.ID)
		return ErrWrongPassword
	}
	return nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID, password, confirm string) error {
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return s.internal(ctx, "password hashing failed", err, "user_id", user.ID)
	}
	user.PasswordDigest = digest
	return s.save(ctx, user, users.Patch{PasswordDigest: &user.PasswordDigest})
}

// UpdateProfilePicture stores an image of at most MaxProfilePictureSize
// bytes. The type is sniffed from the content; declaredType is only logged.
// The previous picture is removed best-effort.
func (s *UserService) UpdateProfilePicture(ctx context.Context, userID string, content io.Reader, declaredType string) (*Profile, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxProfilePictureSize+1))
	if err != nil {
		return nil, s.internal(ctx, "read profile picture failed", err, "user_id", user.ID)
	}
	if len(data) > MaxProfilePictureSize {
		return nil, ErrImageTooLarge
	}
	contentType := http.DetectContentType(data)
	if !profilePictureTypes[contentType] {
		s.logger.Warn(ctx, "profile picture rejected", "user_id", user.ID, "declared", declaredType, "detected", contentType)
		return nil, ErrUnsupportedImage
	}

	key := fmt.Sprintf("users/%s/%s", user.ID, s.newID())
	if err := s.store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, s.internal(ctx, "store profile picture failed", err, "user_id", user.ID)
	}

	previous := user.ProfilePicture
	user.ProfilePicture = key
	if err := s.save(ctx, user, users.Patch{ProfilePicture: &user.ProfilePicture}); err != nil {
		return nil, err
	}

	if previous != "" {
		if err := s.store.Delete(ctx, previous); err != nil {
			s.logger.Warn(ctx, "delete previous profile picture failed", "user_id", user.ID, "key", previous, "error", err)
		}
	}
	return s.profile(ctx, user), nil
}

// Delete removes the user together with tokens, OTPs, cart, wallet and
// profile picture. Only the user delete itself is fatal.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrUserNotFound
		}
		return s.internal(ctx, "delete user failed", err, "user_id", user.ID)
	}

	if _, err := s.refreshTokens.DeleteAllByOwner(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "delete refresh tokens failed", "user_id", user.ID, "error", err)
	}
	if _, err := s.otps.DeleteAllByOwner(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "delete otps failed", "user_id", user.ID, "error", err)
	}
	if err := s.carts.DeleteByUser(ctx, user.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "delete cart failed", "user_id", user.ID, "error", err)
	}
	if err := s.wallets.DeleteByUser(ctx, user.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "delete wallet failed", "user_id", user.ID, "error", err)
	}
	if user.ProfilePicture != "" {
		if err := s.store.Delete(ctx, user.ProfilePicture); err != nil {
			s.logger.Warn(ctx, "delete profile picture failed", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info(ctx, "user deleted", "user_id", user.ID)
	return nil
}

func (s *UserService) profile(ctx context.Context, user *models.User) *Profile {
	p := &Profile{Identity: *user.Identity()}
	if user.ProfilePicture != "" {
		url, err := s.store.PresignGet(ctx, user.ProfilePicture, profilePictureURLTTL)
		if err != nil {
			s.logger.Warn(ctx, "presign profile picture failed", "user_id", user.ID, "error", err)
		} else {
			p.ProfilePictureURL = url
		}
	}
	return p
}

func (s *UserService) ensureFree(ctx context.Context, userID string,
	lookup func(context.Context, string) (*models.User, error), value string, taken error) error {
	other, err := lookup(ctx, value)
	switch {
	case err == nil && other.ID != userID:
		return taken
	case err == nil, errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return s.internal(ctx, "uniqueness lookup failed", err, "user_id", userID)
	}
}

func (s *UserService) load(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.internal(ctx, "load user failed", err, "user_id", userID)
	}
	return user, nil
}

// save writes the fields named by p and stamps the update on user.
func (s *UserService) save(ctx context.Context, user *models.User, p users.Patch) error {
	user.UpdatedAt = s.now()
	user.UpdatedBy = user.ID
	p.UpdatedAt = user.UpdatedAt
	p.UpdatedBy = user.UpdatedBy
	if err := s.users.Update(ctx, user.ID, p); err != nil {
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			return ErrEmailTaken
		case errors.Is(err, users.ErrDuplicateUsername):
			return ErrUsernameTaken
		case errors.Is(err, common.ErrorNotFound):
			return ErrUserNotFound
		}
		return s.internal(ctx, "update user failed", err, "user_id", user.ID)
	}
	return nil
}

func (s *UserService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append(args, "error", err)...)
	return common.Internal(msg, err)
}
