// Package notify delivers one-time codes to users by email.
package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/quickmart/internal/logging"
)

const (
	SubjectVerifyEmail    = "Quickmart Email Verification"
	SubjectForgotPassword = "Quickmart New Password Verification"
)

type Notifier interface {
	Send(ctx context.Context, subject, body, recipient string) error
}

// OtpBody renders the message body carrying code.
func OtpBody(code string) string {
	return fmt.Sprintf("Your OTP is %s", code)
}

// LogNotifier writes messages to the log instead of sending them. Meant for
// local runs without SMTP credentials.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, subject, body, recipient string) error {
	n.logger.Info(ctx, "email not sent, smtp disabled", "subject", subject, "recipient", recipient, "body", body)
	return nil
}
