package services

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/notify"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/otps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otpBody = regexp.MustCompile(`^Your OTP is (\d{6})$`)

func codeFrom(t *testing.T, m sentMail) string {
	t.Helper()
	match := otpBody.FindStringSubmatch(m.body)
	require.Len(t, match, 2, "unexpected body %q", m.body)
	return match[1]
}

// wrong returns a six digit code different from code.
func wrong(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestAuthService_VerifyEmailScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pair := f.register(t, "alice", "alice@x.com", "secret1")
	identity, err := f.auth.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, identity.ID))
	mail := f.notifier.Last(t)
	assert.Equal(t, notify.SubjectVerifyEmail, mail.subject)
	assert.Equal(t, "alice@x.com", mail.recipient)
	code := codeFrom(t, mail)

	require.NoError(t, f.auth.VerifyEmailOTP(ctx, identity.ID, code))
	u := f.user(t, identity.ID)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, identity.ID, u.UpdatedBy)

	err = f.auth.VerifyEmailOTP(ctx, identity.ID, code)
	assert.ErrorIs(t, err, ErrOtpNotFound)
	assert.ErrorIs(t, err, common.ErrorBadRequest)

	assert.ErrorIs(t, f.auth.SendVerifyEmailOTP(ctx, identity.ID), ErrEmailAlreadyVerified)
}

func TestAuthService_VerifyEmailOTP_WrongCodeKeepsOtp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "secret1")
	id := f.userID(t, "alice")

	require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, id))
	code := codeFrom(t, f.notifier.Last(t))
	before, err := f.repos.Otps().GetLatestByOwner(ctx, id)
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.VerifyEmailOTP(ctx, id, wrong(code)), ErrInvalidOtp)
	assert.ErrorIs(t, f.auth.VerifyEmailOTP(ctx, id, ""), ErrInvalidOtp)

	after, err := f.repos.Otps().GetLatestByOwner(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, f.auth.VerifyEmailOTP(ctx, id, code))
}

func TestAuthService_NewOtpReplacesUnverified(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "secret1")
	id := f.userID(t, "alice")

	require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, id))
	first := codeFrom(t, f.notifier.Last(t))
	f.clock.Advance(time.Second)
	require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, id))
	second := codeFrom(t, f.notifier.Last(t))

	assert.Equal(t, 1, f.repos.Otps().(*otps.MemoryRepository).Len())
	if first != second {
		assert.ErrorIs(t, f.auth.VerifyEmailOTP(ctx, id, first), ErrInvalidOtp)
	}
	require.NoError(t, f.auth.VerifyEmailOTP(ctx, id, second))
}

func TestAuthService_VerifyEmailOTP_ValidAtTTL(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "secret1")
	id := f.userID(t, "alice")

	require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, id))
	code := codeFrom(t, f.notifier.Last(t))

	f.clock.Advance(testAuthConfig.OtpTTL)
	require.NoError(t, f.auth.VerifyEmailOTP(ctx, id, code), "valid up to and including the ttl")
}

func TestAuthService_VerifyEmailOTP_PastTTL(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "secret1")
	id := f.userID(t, "alice")

	require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, id))
	code := codeFrom(t, f.notifier.Last(t))

	f.clock.Advance(testAuthConfig.OtpTTL + time.Second)
	assert.ErrorIs(t, f.auth.VerifyEmailOTP(ctx, id, code), ErrOtpExpired)
}

func TestAuthService_VerifyEmailOTP_NoOtp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "alice", "alice@x.com", "secret1")

	assert.ErrorIs(t, f.auth.VerifyEmailOTP(context.Background(), f.userID(t, "alice"), "123456"), ErrOtpNotFound)
}

func TestAuthService_SendVerifyEmailOTP_NoEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repos.Users().Create(ctx, &models.User{ID: "u-noemail", Username: "ghost", Role: models.RoleCustomer}))

	assert.ErrorIs(t, f.auth.SendVerifyEmailOTP(ctx, "u-noemail"), ErrEmailNotConfigured)
	assert.Zero(t, f.repos.Otps().(*otps.MemoryRepository).Len())
}

func TestAuthService_SendVerifyEmailOTP_UnknownUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	assert.ErrorIs(t, f.auth.SendVerifyEmailOTP(context.Background(), "missing"), ErrUserNotFound)
}

func TestAuthService_SendOtp_NotifierFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "secret1")
	id := f.userID(t, "alice")
	f.notifier.err = errBoom

	err := f.auth.SendVerifyEmailOTP(ctx, id)
	assert.ErrorIs(t, err, ErrSendEmail)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.ErrorIs(t, err, errBoom)

	_, err = f.repos.Otps().GetUnverifiedByOwner(ctx, id)
	assert.NoError(t, err, "otp stays stored after a failed send")
}

func TestAuthService_ForgotPasswordScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	pair := f.register(t, "alice", "alice@x.com", "secret1")

	assert.ErrorIs(t, f.auth.SendEmailForgotPasswordOTP(ctx, "nobody@x.com"), ErrEmailNotRegistered)

	require.NoError(t, f.auth.SendEmailForgotPasswordOTP(ctx, "alice@x.com"))
	mail := f.notifier.Last(t)
	assert.Equal(t, notify.SubjectForgotPassword, mail.subject)
	assert.Equal(t, "alice@x.com", mail.recipient)
	code := codeFrom(t, mail)

	_, err := f.auth.VerifyForgotPasswordOTP(ctx, "alice@x.com", wrong(code))
	assert.ErrorIs(t, err, ErrInvalidOtp)
	_, err = f.auth.VerifyForgotPasswordOTP(ctx, "nobody@x.com", code)
	assert.ErrorIs(t, err, ErrEmailNotRegistered)

	otpID, err := f.auth.VerifyForgotPasswordOTP(ctx, "alice@x.com", code)
	require.NoError(t, err)
	require.NotEmpty(t, otpID)

	stored, err := f.repos.Otps().GetByID(ctx, otpID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, otpID, "newsecret", "other"), ErrPasswordMismatch)
	assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, otpID, "short", "short"), ErrPasswordTooShort)

	require.NoError(t, f.auth.ChangeForgottenPassword(ctx, otpID, "newsecret", "newsecret"))

	_, err = f.auth.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "alice", "newsecret")
	assert.NoError(t, err)

	// the capability is gone and old sessions were revoked
	assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, otpID, "another1", "another1"), ErrOtpNotFound)
	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestAuthService_ChangeForgottenPassword_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unverified", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.register(t, "alice", "alice@x.com", "secret1")
		require.NoError(t, f.auth.SendEmailForgotPasswordOTP(ctx, "alice@x.com"))

		otp, err := f.repos.Otps().GetUnverifiedByOwner(ctx, f.userID(t, "alice"))
		require.NoError(t, err)
		assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, otp.ID, "newsecret", "newsecret"), ErrOtpNotVerified)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.register(t, "alice", "alice@x.com", "secret1")
		require.NoError(t, f.auth.SendEmailForgotPasswordOTP(ctx, "alice@x.com"))
		otpID, err := f.auth.VerifyForgotPasswordOTP(ctx, "alice@x.com", codeFrom(t, f.notifier.Last(t)))
		require.NoError(t, err)

		f.clock.Advance(testAuthConfig.OtpTTL + time.Second)
		assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, otpID, "newsecret", "newsecret"), ErrOtpExpired)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, "nope", "newsecret", "newsecret"), ErrOtpNotFound)
	})

	t.Run("owner gone", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.register(t, "alice", "alice@x.com", "secret1")
		require.NoError(t, f.auth.SendEmailForgotPasswordOTP(ctx, "alice@x.com"))
		otpID, err := f.auth.VerifyForgotPasswordOTP(ctx, "alice@x.com", codeFrom(t, f.notifier.Last(t)))
		require.NoError(t, err)
		require.NoError(t, f.repos.Users().Delete(ctx, f.userID(t, "alice")))

		assert.ErrorIs(t, f.auth.ChangeForgottenPassword(ctx, otpID, "newsecret", "newsecret"), ErrOtpOwnerNotFound)
	})
}

func TestAuthService_OtpCodesAreSixDigits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "secret1")
	id := f.userID(t, "alice")

	for i := 0; i < 20; i++ {
		require.NoError(t, f.auth.SendVerifyEmailOTP(ctx, id))
		code := codeFrom(t, f.notifier.Last(t))
		assert.Len(t, code, common.OtpCodeLength)
		assert.Empty(t, strings.Trim(code, "0123456789"))
	}
	assert.Equal(t, 1, f.repos.Otps().(*otps.MemoryRepository).Len())
}
