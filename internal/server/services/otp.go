package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/notify"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/users"
)

// createOtpAttempts bounds retries when a concurrent request slips an
// unverified code in between our delete and create.
const createOtpAttempts = 3

// SendVerifyEmailOTP replaces any unverified code for the user and mails a
// new one to the user's address.
func (s *AuthService) SendVerifyEmailOTP(ctx context.Context, userID string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	if user.Email == "" {
		return ErrEmailNotConfigured
	}

	otp, err := s.replaceOtp(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.sendOtp(ctx, notify.SubjectVerifyEmail, otp, user.Email)
}

// VerifyEmailOTP checks code against the user's newest OTP. On success the
// OTP is deleted and the email is marked verified. A wrong code leaves the
// OTP untouched.
func (s *AuthService) VerifyEmailOTP(ctx context.Context, userID, code string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	otp, err := s.checkLatestOtp(ctx, user.ID, code)
	if err != nil {
		return err
	}

	if err := s.otps.Delete(ctx, otp.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrOtpNotFound
		}
		return s.internal(ctx, "delete otp failed", err, "user_id", user.ID)
	}

	verified := true
	if err := s.users.Update(ctx, user.ID, users.Patch{
		EmailVerified: &verified,
		UpdatedAt:     s.now(),
		UpdatedBy:     user.ID,
	}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrUserNotFound
		}
		return s.internal(ctx, "mark email verified failed", err, "user_id", user.ID)
	}
	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return nil
}

// SendEmailForgotPasswordOTP starts password recovery for email. Unknown
// addresses are reported as such.
func (s *AuthService) SendEmailForgotPasswordOTP(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}

	otp, err := s.replaceOtp(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.sendOtp(ctx, notify.SubjectForgotPassword, otp, user.Email)
}

// VerifyForgotPasswordOTP marks the newest OTP as verified and returns its
// id, which the caller presents to ChangeForgottenPassword.
func (s *AuthService) VerifyForgotPasswordOTP(ctx context.Context, email, code string) (string, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	otp, err := s.checkLatestOtp(ctx, user.ID, code)
	if err != nil {
		return "", err
	}

	otp.Verified = true
	otp.UpdatedAt = s.now()
	if err := s.otps.Update(ctx, otp); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", ErrOtpNotFound
		}
		return "", s.internal(ctx, "mark otp verified failed", err, "user_id", user.ID)
	}
	return otp.ID, nil
}

// ChangeForgottenPassword redeems a verified OTP and sets a new password.
// The OTP is consumed before the password is written so it cannot be
// replayed, and the user's refresh tokens are revoked.
func (s *AuthService) ChangeForgottenPassword(ctx context.Context, otpID, password, confirm string) error {
	otp, err := s.otps.GetByID(ctx, otpID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrOtpNotFound
		}
		return s.internal(ctx, "load otp failed", err)
	}
	if otp.Expired(s.now(), s.cfg.OtpTTL) {
		return ErrOtpExpired
	}
	if !otp.Verified {
		s.logger.Warn(ctx, "password change with unverified otp", "user_id", otp.OwnerID)
		return ErrOtpNotVerified
	}

	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, otp.OwnerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrOtpOwnerNotFound
		}
		return s.internal(ctx, "load otp owner failed", err, "user_id", otp.OwnerID)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return s.internal(ctx, "password hashing failed", err, "user_id", user.ID)
	}

	if err := s.otps.Delete(ctx, otp.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrOtpNotFound
		}
		return s.internal(ctx, "delete otp failed", err, "user_id", user.ID)
	}

	if err := s.users.Update(ctx, user.ID, users.Patch{
		PasswordDigest: &digest,
		UpdatedAt:      s.now(),
		UpdatedBy:      user.ID,
	}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrOtpOwnerNotFound
		}
		return s.internal(ctx, "update password failed", err, "user_id", user.ID)
	}

	if n, err := s.refreshTokens.DeleteAllByOwner(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "revoke refresh tokens failed", "user_id", user.ID, "error", err)
	} else {
		s.logger.Info(ctx, "password reset", "user_id", user.ID, "revoked_tokens", n)
	}
	return nil
}

func (s *AuthService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.internal(ctx, "load user failed", err, "user_id", userID)
	}
	return user, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "otp requested for unknown email", "email", email)
			return nil, ErrEmailNotRegistered
		}
		return nil, s.internal(ctx, "load user by email failed", err)
	}
	return user, nil
}

// checkLatestOtp returns the owner's newest OTP if it is live and matches
// code. Nothing is modified.
func (s *AuthService) checkLatestOtp(ctx context.Context, ownerID, code string) (*models.Otp, error) {
	otp, err := s.otps.GetLatestByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, s.internal(ctx, "load otp failed", err, "user_id", ownerID)
	}
	if otp.Expired(s.now(), s.cfg.OtpTTL) {
		return nil, ErrOtpExpired
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(otp.Code)) != 1 {
		s.logger.Warn(ctx, "otp mismatch", "user_id", ownerID)
		return nil, ErrInvalidOtp
	}
	return otp, nil
}

// replaceOtp deletes the owner's unverified OTP, if any, and stores a fresh
// one. The store allows a single unverified OTP per owner, so a concurrent
// request makes Create fail and we go around again.
func (s *AuthService) replaceOtp(ctx context.Context, ownerID string) (*models.Otp, error) {
	for attempt := 1; ; attempt++ {
		old, err := s.otps.GetUnverifiedByOwner(ctx, ownerID)
		switch {
		case err == nil:
			if err := s.otps.Delete(ctx, old.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return nil, s.internal(ctx, "delete old otp failed", err, "user_id", ownerID)
			}
		case !errors.Is(err, common.ErrorNotFound):
			return nil, s.internal(ctx, "load unverified otp failed", err, "user_id", ownerID)
		}

		code, err := common.MakeNumericCode(common.OtpCodeLength)
		if err != nil {
			return nil, s.internal(ctx, "generate otp failed", err)
		}
		now := s.now()
		otp := &models.Otp{
			ID:        s.newID(),
			OwnerID:   ownerID,
			Code:      code,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.otps.Create(ctx, otp)
		if err == nil {
			return otp, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) || attempt >= createOtpAttempts {
			return nil, s.internal(ctx, "create otp failed", err, "user_id", ownerID)
		}
	}
}

// sendOtp dispatches the code. The OTP stays stored when sending fails; the
// caller may ask for a new one.
func (s *AuthService) sendOtp(ctx context.Context, subject string, otp *models.Otp, recipient string) error {
	if err := s.notifier.Send(ctx, subject, notify.OtpBody(otp.Code), recipient); err != nil {
		s.logger.Error(ctx, "otp email failed", "user_id", otp.OwnerID, "error", err)
		return ErrSendEmail.WithCause(err)
	}
	s.logger.Info(ctx, "otp sent", "user_id", otp.OwnerID, "subject", subject)
	return nil
}
