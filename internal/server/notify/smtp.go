package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/sethvargo/go-retry"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Retries is the number of additional attempts after a failed send.
	Retries uint64
	// Backoff is the initial delay between attempts, doubled each time.
	Backoff time.Duration
	Timeout time.Duration
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier sends plain-text mail over STARTTLS. The sender address is
// the authenticated username.
type SMTPNotifier struct {
	client  sender
	from    string
	retries uint64
	backoff time.Duration
	logger  logging.Logger
}

// newMailClient is a seam for tests.
var newMailClient = func(cfg SMTPConfig) (sender, error) {
	return mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	)
}

func NewSMTPNotifier(cfg SMTPConfig, logger logging.Logger) (*SMTPNotifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	c, err := newMailClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	logger.Debug(context.Background(), "smtp notifier configured",
		"host", cfg.Host, "port", cfg.Port, "username", cfg.Username)
	return &SMTPNotifier{
		client:  c,
		from:    cfg.Username,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		logger:  logger,
	}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, subject, body, recipient string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	attempt := 0
	backoff := retry.WithMaxRetries(n.retries, retry.NewExponential(n.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
			n.logger.Warn(ctx, "send email failed", "attempt", attempt, "recipient", recipient, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		n.logger.Error(ctx, "send email gave up", "recipient", recipient, "error", err)
		return fmt.Errorf("send email: %w", err)
	}
	n.logger.Debug(ctx, "email sent", "recipient", recipient)
	return nil
}
