package services

import "github.com/dmitrijs2005/quickmart/internal/common"

// Authentication and token errors.
var (
	ErrInvalidCredentials   = common.Unauthorized("invalid_credentials", "Invalid username or password")
	ErrInvalidToken         = common.Unauthorized("invalid_token", "Invalid token")
	ErrTokenExpired         = common.Unauthorized("token_expired", "Token expired")
	ErrUserNotFound         = common.Unauthorized("user_not_found", "User not found")
	ErrRefreshTokenNotFound = common.Unauthorized("refresh_token_not_found", "Refresh token not found")
	ErrRefreshTokenExpired  = common.Unauthorized("refresh_token_expired", "Refresh token expired")
)

// Input validation errors.
var (
	ErrPasswordTooShort  = common.BadRequest("password_too_short", "Password must be at least 7 characters long")
	ErrPasswordHasSpaces = common.BadRequest("password_has_spaces", "Password must not contain spaces")
	ErrPasswordMismatch  = common.BadRequest("password_mismatch", "Password does not match")
	ErrInvalidUsername   = common.BadRequest("invalid_username", "Username must not be empty or contain spaces")
	ErrInvalidEmail      = common.BadRequest("invalid_email", "Invalid email address")
	ErrInvalidGender     = common.BadRequest("invalid_gender", "Gender must be male or female")
	ErrInvalidBirthDate  = common.BadRequest("invalid_birth_date", "Invalid birth date, format should be DD-MM-YYYY")
	ErrWrongPassword     = common.BadRequest("wrong_password", "Wrong password")
	ErrUnsupportedImage  = common.BadRequest("unsupported_image_type", "Profile picture must be a jpeg, png or webp image")
	ErrImageTooLarge     = common.BadRequest("image_too_large", "Profile picture must not exceed 5 MiB")
)

var (
	ErrEmailTaken    = common.Conflict("email_taken", "Email already exist")
	ErrUsernameTaken = common.Conflict("username_taken", "Username already exist")
)

// OTP flow errors.
var (
	ErrEmailAlreadyVerified = common.BadRequest("email_already_verified", "Email already verified")
	ErrEmailNotConfigured   = common.BadRequest("email_not_configured", "User email not configured, please update your profile")
	ErrEmailNotRegistered   = common.BadRequest("email_not_registered", "Email not registered")
	ErrOtpNotFound          = common.BadRequest("otp_not_found", "OTP not found")
	ErrOtpExpired           = common.BadRequest("otp_expired", "OTP expired")
	ErrInvalidOtp           = common.BadRequest("invalid_otp", "Invalid OTP")
	ErrOtpNotVerified       = common.BadRequest("otp_not_verified", "OTP not verified, verify first")
	ErrOtpOwnerNotFound     = common.BadRequest("otp_owner_not_found", "User not found")
	ErrSendEmail            = common.NewError(common.KindInternal, "email_send_failed", "Failed to send email")
)
