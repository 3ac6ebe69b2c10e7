package security_test

import (
	"testing"
	"time"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

func newSvc() *security.TokenService {
	return security.NewTokenService("unit-secret", 30*time.Minute, 7*24*time.Hour, 24*time.Hour)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := newSvc()

	tok, err := svc.IssueAccess("user-1")
	if err != nil {
		t.Fatal(err)
	}
	sub, ok := svc.Verify(tok, security.PurposeAccess)
	if !ok || sub != "user-1" {
		t.Fatalf("verify: ok=%v sub=%q", ok, sub)
	}
}

func TestPurposeIsolation(t *testing.T) {
	svc := newSvc()

	access, _ := svc.IssueAccess("user-1")
	refresh, _ := svc.IssueRefresh("user-1")
	verification, _ := svc.IssueVerification("u@example.com")

	cases := []struct {
		tok      string
		expected security.Purpose
	}{
		{access, security.PurposeRefresh},
		{access, security.PurposeVerification},
		{refresh, security.PurposeAccess},
		{verification, security.PurposeAccess},
		{verification, security.PurposeRefresh},
	}
	for _, c := range cases {
		if _, ok := svc.Verify(c.tok, c.expected); ok {
			t.Fatalf("token accepted for wrong purpose %q", c.expected)
		}
	}
}

func TestExpiredTokenInvalid(t *testing.T) {
	svc := newSvc()

	tok, err := svc.Issue("user-1", security.PurposeAccess, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.Verify(tok, security.PurposeAccess); ok {
		t.Fatal("zero-ttl token must be invalid")
	}

	tok, err = svc.Issue("user-1", security.PurposeAccess, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.Verify(tok, security.PurposeAccess); ok {
		t.Fatal("past-expiry token must be invalid")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	tok, err := newSvc().IssueAccess("user-1")
	if err != nil {
		t.Fatal(err)
	}
	other := security.NewTokenService("different-secret", time.Minute, time.Minute, time.Minute)
	if _, ok := other.Verify(tok, security.PurposeAccess); ok {
		t.Fatal("token verified under a different secret")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := newSvc()
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, ok := svc.Verify(tok, security.PurposeAccess); ok {
			t.Fatalf("accepted %q", tok)
		}
	}
}
