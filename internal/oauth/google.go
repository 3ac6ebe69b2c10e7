package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google-issued id_tokens against the tokeninfo
// endpoint, which checks the signature server-side and returns the claims.
type GoogleVerifier struct {
	client    *http.Client
	clientIDs []string // accepted audiences; empty disables the aud check
	endpoint  string
}

func NewGoogle(clientIDs []string) *GoogleVerifier {
	return &GoogleVerifier{
		client:    &http.Client{Timeout: 10 * time.Second},
		clientIDs: clientIDs,
		endpoint:  googleTokenInfoURL,
	}
}

type googleTokenInfo struct {
	Iss           string `json:"iss"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *GoogleVerifier) VerifyGoogle(ctx context.Context, idToken string) (*Claims, error) {
	if idToken == "" {
		return nil, errors.New("empty id_token")
	}

	u := g.endpoint + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("google token rejected: status=%d body=%s", resp.StatusCode, body)
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode tokeninfo: %w", err)
	}

	if info.Iss != "https://accounts.google.com" && info.Iss != "accounts.google.com" {
		return nil, fmt.Errorf("bad issuer %q", info.Iss)
	}
	if len(g.clientIDs) > 0 && !contains(g.clientIDs, info.Aud) {
		return nil, fmt.Errorf("bad audience %q", info.Aud)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, errors.New("missing sub or email in google token")
	}

	return &Claims{
		Provider:       "google",
		ProviderUserID: info.Sub,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified == "true",
		Name:           info.Name,
		Picture:        info.Picture,
	}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
