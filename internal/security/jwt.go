package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose discriminates what a token is allowed to prove. Verify rejects a
// token whose embedded purpose differs from the caller's expectation, so an
// access token can never satisfy a refresh check.
type Purpose string

const (
	PurposeAccess       Purpose = "access"
	PurposeRefresh      Purpose = "refresh"
	PurposeVerification Purpose = "verification"
	PurposeClaim        Purpose = "claim"
)

type Claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies purpose-tagged HS256 tokens. The secret
// and TTLs are injected at construction; there is no global settings object.
type TokenService struct {
	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL, verifyTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		VerifyTTL:  verifyTTL,
	}
}

// Issue signs a token for subject with the given purpose and ttl.
func (s *TokenService) Issue(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *TokenService) IssueAccess(subject string) (string, error) {
	return s.Issue(subject, PurposeAccess, s.AccessTTL)
}

func (s *TokenService) IssueRefresh(subject string) (string, error) {
	return s.Issue(subject, PurposeRefresh, s.RefreshTTL)
}

// IssueVerification binds the pending-verification token to an email rather
// than an account id.
func (s *TokenService) IssueVerification(email string) (string, error) {
	return s.Issue(email, PurposeVerification, s.VerifyTTL)
}

// Verify checks signature, expiry and purpose, and returns the embedded
// subject. ok is false on any failure; nothing panics past this boundary.
func (s *TokenService) Verify(token string, expected Purpose) (subject string, ok bool) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", false
	}
	c, okc := parsed.Claims.(*Claims)
	if !okc || c.Purpose != expected || c.Subject == "" {
		return "", false
	}
	return c.Subject, true
}
