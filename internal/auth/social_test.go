package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/oauth"
)

func googleClaims(sub, email, name string) *oauth.Claims {
	return &oauth.Claims{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: sub,
		Email:          email,
		EmailVerified:  true,
		Name:           name,
		Picture:        "https://lh3.example.com/pic.jpg",
	}
}

func appleClaims(sub, email, name string) *oauth.Claims {
	return &oauth.Claims{
		Provider:       domain.ProviderApple,
		ProviderUserID: sub,
		Email:          email,
		EmailVerified:  email != "",
		Name:           name,
	}
}

func TestGoogleSignInCreatesAccount(t *testing.T) {
	env := newTestEnv()
	env.svc.Google = stubGoogle{claims: googleClaims("g-123", "Jane.Doe@Example.com", "Jane Doe")}

	res, err := env.svc.GoogleSignIn(context.Background(), "tok", "r")
	require.NoError(t, err)

	assert.True(t, res.IsNewUser)
	assert.Equal(t, "jane.doe@example.com", res.User.Email)
	assert.Equal(t, "jane_doe", res.User.Username)
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, "https://lh3.example.com/pic.jpg", res.User.Profile.AvatarURL)
	require.Len(t, res.User.SocialProviders, 1)
	assert.Equal(t, "g-123", res.User.SocialProviders[0].ProviderUserID)
}

func TestGoogleSignInLinksExistingEmailAccount(t *testing.T) {
	env := newTestEnv()
	reg := register(t, env, "jane@example.com", "StrongP@ss1")
	env.svc.Google = stubGoogle{claims: googleClaims("g-123", "jane@example.com", "Jane Doe")}

	res, err := env.svc.GoogleSignIn(context.Background(), "tok", "r")
	require.NoError(t, err)

	assert.False(t, res.IsNewUser)
	assert.Equal(t, reg.User.ID, res.User.ID, "must reuse the password account, not create a twin")

	u, err := env.store.FindUserByID(context.Background(), reg.User.ID)
	require.NoError(t, err)
	require.Len(t, u.SocialProviders, 1)

	// second sign-in with the same provider id must not append a second link
	res, err = env.svc.GoogleSignIn(context.Background(), "tok", "r")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)

	u, err = env.store.FindUserByID(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Len(t, u.SocialProviders, 1)
}

func TestGoogleSignInVerifierFailure(t *testing.T) {
	env := newTestEnv()
	env.svc.Google = stubGoogle{err: errors.New("signature mismatch")}

	_, err := env.svc.GoogleSignIn(context.Background(), "tok", "r")
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestAppleSignInReturningUser(t *testing.T) {
	env := newTestEnv()
	env.svc.Apple = stubApple{claims: appleClaims("apl-1", "jane@example.com", "Jane")}

	first, err := env.svc.AppleSignIn(context.Background(), AppleSignInInput{
		IdentityToken: "tok", UserIdentifier: "apl-1",
	}, "r")
	require.NoError(t, err)
	assert.True(t, first.IsNewUser)

	// Apple withholds the email on later sign-ins; the provider id must be
	// enough to find the account
	env.svc.Apple = stubApple{claims: appleClaims("apl-1", "", "")}
	second, err := env.svc.AppleSignIn(context.Background(), AppleSignInInput{
		IdentityToken: "tok", UserIdentifier: "apl-1",
	}, "r")
	require.NoError(t, err)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestAppleSignInLinksByEmail(t *testing.T) {
	env := newTestEnv()
	reg := register(t, env, "jane@example.com", "StrongP@ss1")
	env.svc.Apple = stubApple{claims: appleClaims("apl-1", "jane@example.com", "Jane")}

	res, err := env.svc.AppleSignIn(context.Background(), AppleSignInInput{
		IdentityToken: "tok", UserIdentifier: "apl-1",
	}, "r")
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	assert.Equal(t, reg.User.ID, res.User.ID)

	u, err := env.store.FindUserByID(context.Background(), reg.User.ID)
	require.NoError(t, err)
	require.Len(t, u.SocialProviders, 1)
	assert.Equal(t, domain.ProviderApple, u.SocialProviders[0].Provider)
}

func TestAppleSignInWithoutEmailGetsPlaceholder(t *testing.T) {
	env := newTestEnv()
	env.svc.Apple = stubApple{claims: appleClaims("apl-xyz", "", "")}

	res, err := env.svc.AppleSignIn(context.Background(), AppleSignInInput{
		IdentityToken: "tok", UserIdentifier: "apl-xyz",
	}, "r")
	require.NoError(t, err)

	assert.True(t, res.IsNewUser)
	assert.Equal(t, "apl-xyz@privaterelay.appleid.com", res.User.Email)
	assert.True(t, strings.HasPrefix(res.User.Username, "user_"), "username=%s", res.User.Username)
	assert.False(t, res.User.IsVerified)
}

func TestAppleUsernameProbing(t *testing.T) {
	env := newTestEnv()
	for _, name := range []string{"jane", "jane_1"} {
		u := domain.NewUser(name+"@taken.example.com", name)
		require.NoError(t, env.store.CreateUser(context.Background(), u))
	}
	env.svc.Apple = stubApple{claims: appleClaims("apl-2", "jane@example.com", "Jane")}

	res, err := env.svc.AppleSignIn(context.Background(), AppleSignInInput{
		IdentityToken: "tok", UserIdentifier: "apl-2",
	}, "r")
	require.NoError(t, err)
	assert.Equal(t, "jane_2", res.User.Username)
}

func TestAppleKeysOutageIsNot401(t *testing.T) {
	env := newTestEnv()
	env.svc.Apple = stubApple{err: oauth.ErrKeysUnavailable}

	_, err := env.svc.AppleSignIn(context.Background(), AppleSignInInput{
		IdentityToken: "tok", UserIdentifier: "apl-1",
	}, "r")
	require.ErrorIs(t, err, apperrors.ErrUnavailable)
	require.NotErrorIs(t, err, apperrors.ErrAuthentication)
}
