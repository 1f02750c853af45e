package services

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

const MinPasswordLength = 7

// validateNewPassword checks length, whitespace and confirmation, in that
// order.
func validateNewPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.IndexFunc(password, unicode.IsSpace) >= 0 {
		return ErrPasswordHasSpaces
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" || strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	return nil
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return ErrInvalidEmail
	}
	return nil
}

func validateBirthDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(models.BirthDateLayout, s); err != nil {
		return ErrInvalidBirthDate
	}
	return nil
}

// ValidateAccount applies the registration rules to an operator-provisioned
// account, which has no confirmation field.
func ValidateAccount(username, email, password string) error {
	if err := validateNewPassword(password, password); err != nil {
		return err
	}
	if err := validateUsername(username); err != nil {
		return err
	}
	return validateEmail(email)
}
