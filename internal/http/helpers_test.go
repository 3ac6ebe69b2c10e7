package http_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/auth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
	api "github.com/saleemjadallah/skinsense-backend-sub002/internal/http"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeUsers is a map-backed stand-in for the Mongo store, enough for
// routing and middleware tests.
type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func (f *fakeUsers) byEmail(email string) *domain.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) CreateUser(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byEmail(u.Email) != nil {
		return fmt.Errorf("%w: email already registered", apperrors.ErrValidation)
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byEmail(email); u != nil {
		cp := *u
		cp.ApplyDefaults()
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUsers) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		cp.ApplyDefaults()
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUsers) FindUserByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeUsers) FindUserByProviderOrEmail(ctx context.Context, provider, providerUserID, email string) (*domain.User, error) {
	return f.FindUserByEmail(ctx, email)
}

func (f *fakeUsers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return false, nil
}

func (f *fakeUsers) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error { return nil }

func (f *fakeUsers) PushProviderLink(ctx context.Context, id primitive.ObjectID, link domain.SocialProviderLink) error {
	return nil
}

func (f *fakeUsers) MarkVerified(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byEmail(email); u != nil {
		u.IsVerified = true
		return nil
	}
	return apperrors.ErrNotFound
}

func (f *fakeUsers) SetPassword(ctx context.Context, email, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byEmail(email); u != nil {
		u.PasswordHash = hash
		return nil
	}
	return apperrors.ErrNotFound
}

func (f *fakeUsers) UpdateOnboarding(ctx context.Context, id primitive.ObjectID, prefs domain.OnboardingPreferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Onboarding = prefs
	return nil
}

func (f *fakeUsers) DeactivateUser(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type fakeOTPs struct {
	mu    sync.Mutex
	codes map[string]string
}

func (f *fakeOTPs) SaveOTP(ctx context.Context, email, purpose, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[email+":"+purpose] = code
	return nil
}

func (f *fakeOTPs) VerifyOTP(ctx context.Context, email, purpose, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := email + ":" + purpose
	if f.codes[key] == code && code != "" {
		delete(f.codes, key)
		return true, nil
	}
	return false, nil
}

type testEnv struct {
	Router *gin.Engine
	Users  *fakeUsers
	OTPs   *fakeOTPs
	Tokens *security.TokenService
}

func newTestEnv() *testEnv {
	users := &fakeUsers{users: map[primitive.ObjectID]*domain.User{}}
	otps := &fakeOTPs{codes: map[string]string{}}
	tokens := security.NewTokenService("http-test-secret", 30*time.Minute, 7*24*time.Hour, 24*time.Hour)

	svc := &auth.Service{
		Users:    users,
		OTPs:     otps,
		Tokens:   tokens,
		Events:   queue.NewNoop(),
		Exchange: "auth.events",
		Log:      zap.NewNop(),
	}

	h := api.NewHandler(svc, nil, nil, tokens, 0, 0, zap.NewNop())
	return &testEnv{
		Router: api.NewRouter(h),
		Users:  users,
		OTPs:   otps,
		Tokens: tokens,
	}
}
