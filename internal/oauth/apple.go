package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const appleKeysURL = "https://appleid.apple.com/auth/keys"

// ErrKeysUnavailable marks a failure to reach Apple's JWKS endpoint, as
// opposed to a token that failed verification.
var ErrKeysUnavailable = errors.New("apple keys unavailable")

// AppleVerifier validates Apple identity tokens against Apple's published
// JWKS. Keys are cached for a day; a cache miss on kid triggers a refetch.
type AppleVerifier struct {
	client    *http.Client
	clientIDs []string // bundle id plus service ids accepted as audience
	keysURL   string

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

func NewApple(clientIDs []string) *AppleVerifier {
	return &AppleVerifier{
		client:    &http.Client{Timeout: 10 * time.Second},
		clientIDs: clientIDs,
		keysURL:   appleKeysURL,
		keys:      map[string]*rsa.PublicKey{},
	}
}

type appleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type appleClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // Apple sends both bool and "true"
	jwt.RegisteredClaims
}

func (a *AppleVerifier) fetchKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.keysURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrKeysUnavailable, resp.StatusCode)
	}

	var payload struct {
		Keys []appleJWK `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode apple keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, k := range payload.Keys {
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	a.mu.Lock()
	a.keys = keys
	a.expiresAt = time.Now().Add(24 * time.Hour)
	a.mu.Unlock()
	return nil
}

func parseRSAKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

func (a *AppleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.RLock()
	key, ok := a.keys[kid]
	fresh := time.Now().Before(a.expiresAt)
	a.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := a.fetchKeys(ctx); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if key, ok := a.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("no apple key for kid %q", kid)
}

// VerifyApple checks the identity token's signature, issuer, audience and
// expiry, and that its subject matches the client-supplied user identifier.
// Apple only sends email and name on the first sign-in, so the request-level
// fallbacks are folded into the returned claims.
func (a *AppleVerifier) VerifyApple(ctx context.Context, identityToken, userIdentifier, email, fullName string) (*Claims, error) {
	if identityToken == "" {
		return nil, errors.New("empty identity token")
	}

	claims := &appleClaims{}
	_, err := jwt.ParseWithClaims(identityToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return a.publicKey(ctx, kid)
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer("https://appleid.apple.com"))
	if err != nil {
		return nil, fmt.Errorf("apple token verification: %w", err)
	}

	if len(a.clientIDs) > 0 && !audienceAccepted(claims.Audience, a.clientIDs) {
		return nil, fmt.Errorf("bad audience %v", claims.Audience)
	}
	if userIdentifier != "" && claims.Subject != userIdentifier {
		return nil, fmt.Errorf("user identifier mismatch: token sub %q", claims.Subject)
	}

	out := &Claims{
		Provider:       "apple",
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  appleBool(claims.EmailVerified),
		Name:           strings.TrimSpace(fullName),
	}
	if out.Email == "" {
		out.Email = email
	}
	return out, nil
}

func audienceAccepted(aud jwt.ClaimStrings, accepted []string) bool {
	for _, got := range aud {
		for _, want := range accepted {
			if got == want {
				return true
			}
		}
	}
	return false
}

func appleBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}
