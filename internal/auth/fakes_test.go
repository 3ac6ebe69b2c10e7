package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/oauth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

// memStore mirrors the repo semantics closely enough for the engine tests:
// unique email, idempotent provider links, defaults applied on load.
type memStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newMemStore() *memStore {
	return &memStore{users: map[primitive.ObjectID]*domain.User{}}
}

func (m *memStore) clone(u *domain.User) *domain.User {
	cp := *u
	cp.SocialProviders = append([]domain.SocialProviderLink(nil), u.SocialProviders...)
	cp.ApplyDefaults()
	return &cp
}

func (m *memStore) CreateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return fmt.Errorf("%w: email already registered", apperrors.ErrValidation)
		}
	}
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = m.clone(u)
	return nil
}

func (m *memStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return m.clone(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return m.clone(u), nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) FindUserByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.HasProvider(provider, providerUserID) {
			return m.clone(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) FindUserByProviderOrEmail(ctx context.Context, provider, providerUserID, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.HasProvider(provider, providerUserID) || u.Email == email {
			return m.clone(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

func (m *memStore) PushProviderLink(ctx context.Context, id primitive.ObjectID, link domain.SocialProviderLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if u.HasProvider(link.Provider, link.ProviderUserID) {
		return nil
	}
	u.SocialProviders = append(u.SocialProviders, link)
	return nil
}

func (m *memStore) MarkVerified(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u.IsVerified = true
			u.VerificationToken = ""
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *memStore) SetPassword(ctx context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u.PasswordHash = hash
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *memStore) UpdateOnboarding(ctx context.Context, id primitive.ObjectID, prefs domain.OnboardingPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.Onboarding = prefs
	return nil
}

func (m *memStore) DeactivateUser(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type otpEntry struct {
	code     string
	attempts int
}

// memOTP mimics the Redis store: consume on success, delete after three
// failed attempts.
type memOTP struct {
	mu    sync.Mutex
	codes map[string]*otpEntry
}

func newMemOTP() *memOTP { return &memOTP{codes: map[string]*otpEntry{}} }

func otpKey(email, purpose string) string { return "otp:" + email + ":" + purpose }

func (m *memOTP) SaveOTP(ctx context.Context, email, purpose, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[otpKey(email, purpose)] = &otpEntry{code: code}
	return nil
}

func (m *memOTP) VerifyOTP(ctx context.Context, email, purpose, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := otpKey(email, purpose)
	e, ok := m.codes[key]
	if !ok {
		return false, nil
	}
	if e.attempts >= 3 {
		delete(m.codes, key)
		return false, nil
	}
	if e.code == code {
		delete(m.codes, key)
		return true, nil
	}
	e.attempts++
	return false, nil
}

// saved returns the last code stored for (email, purpose), for assertions.
func (m *memOTP) saved(email, purpose string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.codes[otpKey(email, purpose)]; ok {
		return e.code
	}
	return ""
}

type stubGoogle struct {
	claims *oauth.Claims
	err    error
}

func (s stubGoogle) VerifyGoogle(ctx context.Context, idToken string) (*oauth.Claims, error) {
	return s.claims, s.err
}

type stubApple struct {
	claims *oauth.Claims
	err    error
}

func (s stubApple) VerifyApple(ctx context.Context, identityToken, userIdentifier, email, fullName string) (*oauth.Claims, error) {
	return s.claims, s.err
}

type testEnv struct {
	svc   *Service
	store *memStore
	otps  *memOTP
}

func newTestEnv() *testEnv {
	store := newMemStore()
	otps := newMemOTP()
	svc := &Service{
		Users:    store,
		OTPs:     otps,
		Tokens:   security.NewTokenService("test-secret", 30*time.Minute, 7*24*time.Hour, 24*time.Hour),
		Events:   queue.NewNoop(),
		Exchange: "auth.events",
		Log:      zap.NewNop(),
	}
	return &testEnv{svc: svc, store: store, otps: otps}
}
