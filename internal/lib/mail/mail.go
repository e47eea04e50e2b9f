// Package mail delivers account activation links over email via Resend.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type Config struct {
	APIKey    string
	FromName  string
	FromEmail string
	// APIURL is the public base URL of this service, used to build the
	// activation link the recipient clicks.
	APIURL string
}

type Resend struct {
	log    *slog.Logger
	client *resend.Client
	from   string
	apiURL string
}

func NewResend(log *slog.Logger, cfg Config) (*Resend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	return &Resend{
		log:    log,
		client: resend.NewClient(cfg.APIKey),
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		apiURL: cfg.APIURL,
	}, nil
}

// SendActivationMail sends the activation letter for link to the given
// address.
func (s *Resend) SendActivationMail(ctx context.Context, to string, link string) error {
	const op = "mail.SendActivationMail"

	activationURL := fmt.Sprintf("%s/api/activate/%s", s.apiURL, link)

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "Activate your account",
		Html: fmt.Sprintf(
			`<div><h1>Confirm your email address</h1><p>Follow the link to activate your account:</p><a href="%s">%s</a></div>`,
			activationURL, activationURL,
		),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("activation mail sent", slog.String("email_id", sent.Id))

	return nil
}

// Noop discards activation mail. Used when no mail provider is configured,
// e.g. in local runs and tests.
type Noop struct {
	log *slog.Logger
}

func NewNoop(log *slog.Logger) *Noop {
	return &Noop{log: log}
}

func (s *Noop) SendActivationMail(_ context.Context, to string, link string) error {
	s.log.Debug("skipping activation mail",
		slog.String("to", to),
		slog.String("link", link),
	)
	return nil
}
