package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func appleTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func appleJWKS(t *testing.T, kid string, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	eb := big.NewInt(int64(key.PublicKey.E)).Bytes()
	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(eb),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signAppleToken(t *testing.T, kid string, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func appleTokenClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://appleid.apple.com",
		"aud":            "app.skinsense.ios",
		"sub":            sub,
		"email":          "jane@privaterelay.appleid.com",
		"email_verified": "true",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func TestVerifyApple(t *testing.T) {
	key := appleTestKey(t)
	srv := appleJWKS(t, "kid1", key)

	v := NewApple([]string{"app.skinsense.ios"})
	v.keysURL = srv.URL

	tok := signAppleToken(t, "kid1", key, appleTokenClaims("apl-1"))
	claims, err := v.VerifyApple(context.Background(), tok, "apl-1", "", "Jane Doe")
	if err != nil {
		t.Fatal(err)
	}
	if claims.ProviderUserID != "apl-1" {
		t.Fatalf("sub: %q", claims.ProviderUserID)
	}
	if claims.Email != "jane@privaterelay.appleid.com" || !claims.EmailVerified {
		t.Fatalf("claims: %+v", claims)
	}
	if claims.Name != "Jane Doe" {
		t.Fatalf("request-level name not folded in: %q", claims.Name)
	}
}

func TestVerifyAppleUserIdentifierMismatch(t *testing.T) {
	key := appleTestKey(t)
	srv := appleJWKS(t, "kid1", key)
	v := NewApple(nil)
	v.keysURL = srv.URL

	tok := signAppleToken(t, "kid1", key, appleTokenClaims("apl-1"))
	if _, err := v.VerifyApple(context.Background(), tok, "someone-else", "", ""); err == nil {
		t.Fatal("subject mismatch must fail")
	}
}

func TestVerifyAppleWrongIssuer(t *testing.T) {
	key := appleTestKey(t)
	srv := appleJWKS(t, "kid1", key)
	v := NewApple(nil)
	v.keysURL = srv.URL

	claims := appleTokenClaims("apl-1")
	claims["iss"] = "https://accounts.google.com"
	tok := signAppleToken(t, "kid1", key, claims)
	if _, err := v.VerifyApple(context.Background(), tok, "apl-1", "", ""); err == nil {
		t.Fatal("wrong issuer must fail")
	}
}

func TestVerifyAppleWrongAudience(t *testing.T) {
	key := appleTestKey(t)
	srv := appleJWKS(t, "kid1", key)
	v := NewApple([]string{"app.other.bundle"})
	v.keysURL = srv.URL

	tok := signAppleToken(t, "kid1", key, appleTokenClaims("apl-1"))
	if _, err := v.VerifyApple(context.Background(), tok, "apl-1", "", ""); err == nil {
		t.Fatal("wrong audience must fail")
	}
}

func TestVerifyAppleWrongKey(t *testing.T) {
	served := appleTestKey(t)
	signer := appleTestKey(t)
	srv := appleJWKS(t, "kid1", served)
	v := NewApple(nil)
	v.keysURL = srv.URL

	tok := signAppleToken(t, "kid1", signer, appleTokenClaims("apl-1"))
	if _, err := v.VerifyApple(context.Background(), tok, "apl-1", "", ""); err == nil {
		t.Fatal("signature from a different key must fail")
	}
}

func TestVerifyAppleKeysUnreachable(t *testing.T) {
	key := appleTestKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	v := NewApple(nil)
	v.keysURL = srv.URL

	tok := signAppleToken(t, "kid1", key, appleTokenClaims("apl-1"))
	_, err := v.VerifyApple(context.Background(), tok, "apl-1", "", "")
	if !errors.Is(err, ErrKeysUnavailable) {
		t.Fatalf("want ErrKeysUnavailable, got %v", err)
	}
}

func TestVerifyAppleRequestEmailFallback(t *testing.T) {
	key := appleTestKey(t)
	srv := appleJWKS(t, "kid1", key)
	v := NewApple(nil)
	v.keysURL = srv.URL

	claims := appleTokenClaims("apl-1")
	delete(claims, "email")
	delete(claims, "email_verified")
	tok := signAppleToken(t, "kid1", key, claims)

	out, err := v.VerifyApple(context.Background(), tok, "apl-1", "fallback@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Email != "fallback@example.com" {
		t.Fatalf("email: %q", out.Email)
	}
	if out.EmailVerified {
		t.Fatal("email_verified must default false")
	}
}
