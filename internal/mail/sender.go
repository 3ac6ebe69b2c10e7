package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Sender delivers the transactional messages the notify worker produces.
type Sender interface {
	SendOTP(ctx context.Context, to, username, code, purpose string) error
	SendWelcome(ctx context.Context, to, username string) error
}

// NoopSender logs instead of sending; the default in dev.
type NoopSender struct{ Log *zap.Logger }

func (s NoopSender) SendOTP(ctx context.Context, to, username, code, purpose string) error {
	s.Log.Info("noop mail: otp", zap.String("to", to), zap.String("purpose", purpose))
	return nil
}

func (s NoopSender) SendWelcome(ctx context.Context, to, username string) error {
	s.Log.Info("noop mail: welcome", zap.String("to", to))
	return nil
}

func otpSubject(purpose string) string {
	if purpose == "reset" {
		return "Reset your SkinSense password"
	}
	return "Verify your SkinSense email"
}

func otpText(username, code, purpose string) string {
	action := "verify your email"
	if purpose == "reset" {
		action = "reset your password"
	}
	return fmt.Sprintf("Hi %s,\n\nYour code to %s is %s. It expires in 10 minutes.\n", username, action, code)
}

func otpHTML(username, code, purpose string) string {
	action := "verify your email"
	if purpose == "reset" {
		action = "reset your password"
	}
	return fmt.Sprintf("<p>Hi %s,</p><p>Your code to %s is <strong>%s</strong>.</p><p>It expires in 10 minutes.</p>",
		username, action, code)
}

func welcomeText(username string) string {
	return fmt.Sprintf("Hi %s,\n\nYour email is verified. Welcome to SkinSense!\n", username)
}

func welcomeHTML(username string) string {
	return fmt.Sprintf("<p>Hi %s,</p><p>Your email is verified. Welcome to SkinSense!</p>", username)
}
