package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

// VerifyEmailToken consumes the signed 24h verification token issued at
// registration and flips the account's verified flag.
func (s *Service) VerifyEmailToken(ctx context.Context, token string) error {
	email, ok := s.Tokens.Verify(token, security.PurposeVerification)
	if !ok {
		return fmt.Errorf("%w: invalid or expired verification token", apperrors.ErrValidation)
	}
	return s.Users.MarkVerified(ctx, email)
}

// VerifyOTP checks the emailed code, marks the account verified and queues
// the welcome email.
func (s *Service) VerifyOTP(ctx context.Context, email, code, reqID string) error {
	email = normalizeEmail(email)

	valid, err := s.OTPs.VerifyOTP(ctx, email, OTPPurposeVerification, code)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("%w: invalid or expired OTP", apperrors.ErrValidation)
	}

	if err := s.Users.MarkVerified(ctx, email); err != nil {
		return err
	}

	username := email
	if u, err := s.Users.FindUserByEmail(ctx, email); err == nil {
		username = u.Username
		s.notify(queue.KeyUserVerified, queue.UserVerified{UserID: u.ID.Hex(), Email: email}, reqID)
	}
	s.notify(queue.KeyWelcome, queue.WelcomeRequested{Email: email, Username: username}, reqID)
	return nil
}

// ResendOTP issues a fresh code for verification or password reset.
func (s *Service) ResendOTP(ctx context.Context, email, purpose, reqID string) error {
	email = normalizeEmail(email)
	if purpose != OTPPurposeVerification && purpose != OTPPurposeReset {
		return fmt.Errorf("%w: purpose must be %q or %q", apperrors.ErrValidation,
			OTPPurposeVerification, OTPPurposeReset)
	}

	u, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.sendOTP(ctx, email, u.Username, purpose, reqID)
}

// ForgotPassword queues a reset code when the email exists and does nothing
// when it doesn't. Callers return the identical message either way so the
// endpoint can't be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email, reqID string) error {
	email = normalizeEmail(email)

	u, err := s.Users.FindUserByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.sendOTP(ctx, email, u.Username, OTPPurposeReset, reqID); err != nil {
		s.Log.Warn("reset otp send failed", zap.String("email", email), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset code and installs the new password hash.
// The code is deleted by the successful verify itself, so it cannot be
// replayed even if the password update fails afterwards.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	valid, err := s.OTPs.VerifyOTP(ctx, email, OTPPurposeReset, code)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("%w: invalid or expired OTP", apperrors.ErrValidation)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, email, hash)
}

func (s *Service) sendOTP(ctx context.Context, email, username, purpose, reqID string) error {
	code, err := security.NumericCode(6)
	if err != nil {
		return err
	}
	if err := s.OTPs.SaveOTP(ctx, email, purpose, code); err != nil {
		return err
	}
	s.notify(queue.KeyOTPRequested, queue.OTPRequested{
		Email: email, Username: username, Code: code, Purpose: purpose,
	}, reqID)
	return nil
}
