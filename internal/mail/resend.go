package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers through the Resend REST API.
type ResendSender struct {
	from   string
	client *resend.Client
}

func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendSender{from: from, client: resend.NewClient(apiKey)}, nil
}

func (s *ResendSender) send(ctx context.Context, to, subject, text, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Text:    text,
		Html:    html,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

func (s *ResendSender) SendOTP(ctx context.Context, to, username, code, purpose string) error {
	return s.send(ctx, to, otpSubject(purpose), otpText(username, code, purpose), otpHTML(username, code, purpose))
}

func (s *ResendSender) SendWelcome(ctx context.Context, to, username string) error {
	return s.send(ctx, to, "Welcome to SkinSense", welcomeText(username), welcomeHTML(username))
}
