package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/oauth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

// maxUsernameProbes caps the probe-and-suffix loop; beyond it a random
// suffix is appended instead of counting further.
const maxUsernameProbes = 100

// deriveUsername builds a username from the provider display name, falling
// back to the local part of the email: lowercased, spaces to underscores.
func deriveUsername(name, email string) string {
	base := strings.TrimSpace(name)
	if base == "" && email != "" {
		base = strings.SplitN(email, "@", 2)[0]
	}
	return strings.ReplaceAll(strings.ToLower(base), " ", "_")
}

func usernameBase(claims *oauth.Claims) string {
	if base := deriveUsername(claims.Name, claims.Email); base != "" {
		return base
	}
	suffix, err := security.TokenHex(4)
	if err != nil {
		suffix = claims.ProviderUserID
	}
	return "user_" + suffix
}

// uniqueUsername probes the store for a free username, suffixing an
// incrementing counter. The existence probe and the later insert are not
// atomic, so this is best effort under concurrent signups.
func (s *Service) uniqueUsername(ctx context.Context, base string) (string, error) {
	username := base
	for counter := 1; ; counter++ {
		taken, err := s.Users.UsernameTaken(ctx, username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
		if counter > maxUsernameProbes {
			suffix, err := security.TokenHex(4)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s_%s", base, suffix), nil
		}
		username = fmt.Sprintf("%s_%d", base, counter)
	}
}
