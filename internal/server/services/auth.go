// Package services contains server-side business logic. AuthService covers
// login, registration, access token verification, refresh token rotation
// and the OTP flows. UserService manages the signed-in user's profile.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/server/events"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/notify"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/otps"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/users"
	"github.com/google/uuid"
)

const refreshTokenBytes = 32

type AuthService struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
	otps          otps.Repository
	hasher        PasswordHasher
	codec         TokenCodec
	notifier      notify.Notifier
	publisher     EventPublisher
	cfg           AuthConfig
	logger        logging.Logger

	now   func() time.Time
	newID func() string
}

func NewAuthService(m repomanager.RepositoryManager, hasher PasswordHasher, codec TokenCodec,
	notifier notify.Notifier, publisher EventPublisher, cfg AuthConfig, logger logging.Logger) *AuthService {
	return &AuthService{
		users:         m.Users(),
		refreshTokens: m.RefreshTokens(),
		otps:          m.Otps(),
		hasher:        hasher,
		codec:         codec,
		notifier:      notifier,
		publisher:     publisher,
		cfg:           cfg,
		logger:        logger.With("module", "auth"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Login accepts an email (anything containing "@") or a username. Unknown
// users and wrong passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "login failed: unknown user", "identifier", identifier)
			return nil, ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "login lookup failed", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordDigest)
	if err != nil {
		return nil, s.internal(ctx, "password verification failed", err, "user_id", user.ID)
	}
	if !ok {
		s.logger.Warn(ctx, "login failed: wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Register validates input, stores a new customer and returns a token pair
// for it. Nothing is written when validation fails.
func (s *AuthService) Register(ctx context.Context, fullname, username, email, password, confirm string) (*TokenPair, error) {
	fullname = strings.TrimSpace(fullname)
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateNewPassword(password, confirm); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.logger.Warn(ctx, "register rejected: email taken", "email", email)
		return nil, ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, s.internal(ctx, "register email lookup failed", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		s.logger.Warn(ctx, "register rejected: username taken", "username", username)
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, s.internal(ctx, "register username lookup failed", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal(ctx, "password hashing failed", err)
	}

	now := s.now()
	user := &models.User{
		ID:             s.newID(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Role:           models.RoleCustomer,
		Fullname:       fullname,
		Username:       username,
		Email:          email,
		Language:       models.DefaultLanguage,
		Currency:       models.DefaultCurrency,
		PasswordDigest: digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race against a concurrent registration
		switch {
		case errors.Is(err, users.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, users.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, s.internal(ctx, "create user failed", err)
	}
	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)

	if err := s.publisher.PublishUserRegistered(ctx, events.UserRegistered{UserID: user.ID}); err != nil {
		s.logger.Error(ctx, "publish user registered failed", "user_id", user.ID, "error", err)
	}

	return s.issueTokens(ctx, user)
}

// Verify decodes an access token, with or without the "Bearer " prefix,
// stamps the user's last_active and returns the stored user's identity so
// role and verification changes apply immediately.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.Identity, error) {
	token = common.StripBearer(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken.WithDetail(err.Error())
	}

	if err := s.users.TouchLastActive(ctx, claims.Subject, s.now()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "token for missing user", "user_id", claims.Subject)
			return nil, ErrUserNotFound
		}
		return nil, s.internal(ctx, "update last active failed", err, "user_id", claims.Subject)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.internal(ctx, "load user failed", err, "user_id", claims.Subject)
	}
	return user.Identity(), nil
}

// Refresh redeems a refresh token exactly once and issues a new pair. Of
// two concurrent calls with the same token only the one whose delete
// succeeds gets tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.refreshTokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, s.internal(ctx, "find refresh token failed", err)
	}

	if token.Expired(s.now()) {
		if err := s.refreshTokens.Delete(ctx, token.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "delete expired refresh token failed", "user_id", token.OwnerID, "error", err)
		}
		s.logger.Warn(ctx, "refresh with expired token", "user_id", token.OwnerID)
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.users.GetByID(ctx, token.OwnerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.internal(ctx, "load refresh token owner failed", err, "user_id", token.OwnerID)
	}

	if err := s.refreshTokens.Delete(ctx, token.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh token already redeemed", "user_id", user.ID)
			return nil, ErrRefreshTokenNotFound
		}
		return nil, s.internal(ctx, "delete refresh token failed", err, "user_id", user.ID)
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, _, err := s.codec.Encode(user.Identity(), s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, s.internal(ctx, "sign access token failed", err, "user_id", user.ID)
	}

	refresh, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, s.internal(ctx, "generate refresh token failed", err)
	}

	now := s.now()
	if err := s.refreshTokens.Create(ctx, &models.RefreshToken{
		ID:        refresh,
		OwnerID:   user.ID,
		CreatedAt: now,
		ExpiredAt: now.Add(s.cfg.RefreshTokenTTL),
	}); err != nil {
		return nil, s.internal(ctx, "store refresh token failed", err, "user_id", user.ID)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append(args, "error", err)...)
	return common.Internal(msg, err)
}
