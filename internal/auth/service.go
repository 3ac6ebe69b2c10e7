package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/metrics"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/oauth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

const (
	OTPPurposeVerification = "verification"
	OTPPurposeReset        = "reset"
)

// UserStore is the account collection as the reconciliation engine sees it.
// Implemented by repo.Store; tests substitute an in-memory fake.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindUserByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error)
	FindUserByProviderOrEmail(ctx context.Context, provider, providerUserID, email string) (*domain.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error
	PushProviderLink(ctx context.Context, id primitive.ObjectID, link domain.SocialProviderLink) error
	MarkVerified(ctx context.Context, email string) error
	SetPassword(ctx context.Context, email, hash string) error
	UpdateOnboarding(ctx context.Context, id primitive.ObjectID, prefs domain.OnboardingPreferences) error
	DeactivateUser(ctx context.Context, id primitive.ObjectID) error
}

// OTPStore holds short-lived numeric codes scoped by (email, purpose).
type OTPStore interface {
	SaveOTP(ctx context.Context, email, purpose, code string) error
	VerifyOTP(ctx context.Context, email, purpose, code string) (bool, error)
}

type GoogleVerifier interface {
	VerifyGoogle(ctx context.Context, idToken string) (*oauth.Claims, error)
}

type AppleVerifier interface {
	VerifyApple(ctx context.Context, identityToken, userIdentifier, email, fullName string) (*oauth.Claims, error)
}

// Service reconciles inbound identity claims (password, Google, Apple)
// against the account store and issues token pairs.
type Service struct {
	Users    UserStore
	OTPs     OTPStore
	Tokens   *security.TokenService
	Google   GoogleVerifier
	Apple    AppleVerifier
	Events   queue.Publisher
	Exchange string
	Log      *zap.Logger
}

// Result is the shared output envelope of every sign-in entry point.
type Result struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	User         *domain.User
	IsNewUser    bool
}

func (s *Service) tokenPair(u *domain.User, isNew bool) (*Result, error) {
	uid := u.ID.Hex()
	access, err := s.Tokens.IssueAccess(uid)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.IssueRefresh(uid)
	if err != nil {
		return nil, err
	}
	return &Result{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.Tokens.AccessTTL.Seconds()),
		User:         u,
		IsNewUser:    isNew,
	}, nil
}

// notify publishes best-effort from a detached goroutine; a lost event never
// fails the request that produced it.
func (s *Service) notify(key string, event any, reqID string) {
	if s.Events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Events.Publish(ctx, s.Exchange, key, event, reqID); err != nil {
			s.Log.Warn("event publish failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func recordSignIn(method string, isNew bool) {
	metrics.SignInsTotal.WithLabelValues(method, strconv.FormatBool(isNew)).Inc()
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
	Name     string
}

// Register creates a password account. Usernames are not checked for
// uniqueness here; only the email must be free. The account is usable
// immediately, before email verification.
func (s *Service) Register(ctx context.Context, in RegisterInput, reqID string) (*Result, error) {
	email := normalizeEmail(in.Email)

	if _, err := s.Users.FindUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", apperrors.ErrValidation)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	verifyTok, err := s.Tokens.IssueVerification(email)
	if err != nil {
		return nil, err
	}

	u := domain.NewUser(email, strings.TrimSpace(in.Username))
	u.Name = strings.TrimSpace(in.Name)
	u.PasswordHash = hash
	u.VerificationToken = verifyTok

	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := s.sendOTP(ctx, email, u.Username, OTPPurposeVerification, reqID); err != nil {
		s.Log.Warn("verification otp send failed", zap.Error(err))
	}
	s.notify(queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID.Hex(), Email: email, Username: u.Username,
	}, reqID)

	recordSignIn("password", true)
	return s.tokenPair(u, true)
}

// Login authenticates by email and password. Absent account and wrong
// password collapse into one error so responses don't enumerate accounts.
// is_new_user mirrors the negated onboarding-completed flag: a user who
// registered but never finished onboarding is still "new" to the client.
func (s *Service) Login(ctx context.Context, email, password, reqID string) (*Result, error) {
	email = normalizeEmail(email)

	u, err := s.Users.FindUserByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrAuthentication)
	}
	if err != nil {
		return nil, err
	}
	if !security.CheckPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrAuthentication)
	}
	if !u.IsActive {
		return nil, apperrors.ErrInactive
	}

	s.touchLogin(ctx, u)
	s.notify(queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: u.ID.Hex(), Email: u.Email}, reqID)

	recordSignIn("password", !u.Onboarding.IsCompleted)
	return s.tokenPair(u, !u.Onboarding.IsCompleted)
}

// Refresh exchanges a valid refresh token for a new pair. The token alone is
// not trusted: the account must still exist and be active.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	sub, ok := s.Tokens.Verify(refreshToken, security.PurposeRefresh)
	if !ok {
		return nil, fmt.Errorf("%w: invalid refresh token", apperrors.ErrAuthentication)
	}
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperrors.ErrAuthentication)
	}

	u, err := s.Users.FindUserByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found or inactive", apperrors.ErrAuthentication)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: user not found or inactive", apperrors.ErrAuthentication)
	}

	return s.tokenPair(u, false)
}

// Me returns the account snapshot for an access-token subject.
func (s *Service) Me(ctx context.Context, uid string) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	return s.Users.FindUserByID(ctx, id)
}

// UpdatePreferences stores onboarding answers; once gender, age group and
// skin type are all present the onboarding is marked completed, which flips
// is_new_user on subsequent logins.
func (s *Service) UpdatePreferences(ctx context.Context, uid string, prefs domain.OnboardingPreferences) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	u, err := s.Users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if prefs.Gender != "" && prefs.AgeGroup != "" && prefs.SkinType != "" {
		now := time.Now().UTC()
		prefs.IsCompleted = true
		prefs.CompletedAt = &now
	}
	if err := s.Users.UpdateOnboarding(ctx, id, prefs); err != nil {
		return nil, err
	}
	u.Onboarding = prefs
	return u, nil
}

// Deactivate soft-deletes the account. The document stays in place so the
// email remains claimed; only is_active flips.
func (s *Service) Deactivate(ctx context.Context, uid string) error {
	id, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		return apperrors.ErrNotFound
	}
	return s.Users.DeactivateUser(ctx, id)
}

func (s *Service) touchLogin(ctx context.Context, u *domain.User) {
	now := time.Now().UTC()
	u.LastLogin = &now
	if err := s.Users.UpdateLastLogin(ctx, u.ID); err != nil {
		s.Log.Warn("last_login update failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}
