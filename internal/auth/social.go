package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/oauth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/queue"
)

// GoogleSignIn reconciles a Google id_token against the account store.
// Matching is by existing provider link OR by email; a match by email gets
// the Google identity linked on first use. Generated usernames are not
// deduplicated on this path; duplicates are allowed.
func (s *Service) GoogleSignIn(ctx context.Context, idToken, reqID string) (*Result, error) {
	claims, err := s.Google.VerifyGoogle(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid google token", apperrors.ErrAuthentication)
	}
	email := normalizeEmail(claims.Email)

	u, err := s.Users.FindUserByProviderOrEmail(ctx, domain.ProviderGoogle, claims.ProviderUserID, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if u != nil {
		s.touchLogin(ctx, u)
		if !u.HasProvider(domain.ProviderGoogle, claims.ProviderUserID) {
			link := providerLink(claims)
			if err := s.Users.PushProviderLink(ctx, u.ID, link); err != nil {
				s.Log.Warn("google link failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
			} else {
				u.SocialProviders = append(u.SocialProviders, link)
			}
		}
		recordSignIn("google", false)
		return s.tokenPair(u, false)
	}

	u = domain.NewUser(email, deriveUsername(claims.Name, email))
	u.Name = claims.Name
	u.IsVerified = claims.EmailVerified
	u.SocialProviders = []domain.SocialProviderLink{providerLink(claims)}
	if claims.Picture != "" {
		u.Profile.AvatarURL = claims.Picture
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.notify(queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID.Hex(), Email: u.Email, Username: u.Username,
	}, reqID)
	recordSignIn("google", true)
	return s.tokenPair(u, true)
}

type AppleSignInInput struct {
	IdentityToken  string
	UserIdentifier string
	Email          string
	FullName       string
}

// AppleSignIn reconciles an Apple identity token. Lookup is id-first; an
// email match is attempted only when the provider id found nothing and the
// claims carry an email. Apple omits the email after the first sign-in and
// may withhold it entirely, so a created account can get a private-relay
// style placeholder address derived from the provider id. Unlike the Google
// path, generated usernames are kept unique here.
func (s *Service) AppleSignIn(ctx context.Context, in AppleSignInInput, reqID string) (*Result, error) {
	claims, err := s.Apple.VerifyApple(ctx, in.IdentityToken, in.UserIdentifier, in.Email, in.FullName)
	if err != nil {
		if errors.Is(err, oauth.ErrKeysUnavailable) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: invalid apple token", apperrors.ErrAuthentication)
	}

	u, err := s.Users.FindUserByProvider(ctx, domain.ProviderApple, claims.ProviderUserID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if u != nil {
		s.touchLogin(ctx, u)
		recordSignIn("apple", false)
		return s.tokenPair(u, false)
	}

	if claims.Email != "" {
		email := normalizeEmail(claims.Email)
		u, err = s.Users.FindUserByEmail(ctx, email)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if u != nil {
			if err := s.Users.PushProviderLink(ctx, u.ID, providerLink(claims)); err != nil {
				s.Log.Warn("apple link failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
			}
			s.touchLogin(ctx, u)
			recordSignIn("apple", false)
			return s.tokenPair(u, false)
		}
	}

	return s.createAppleUser(ctx, claims, reqID)
}

func (s *Service) createAppleUser(ctx context.Context, claims *oauth.Claims, reqID string) (*Result, error) {
	username, err := s.uniqueUsername(ctx, usernameBase(claims))
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(claims.Email)
	if email == "" {
		email = claims.ProviderUserID + "@privaterelay.appleid.com"
	}

	u := domain.NewUser(email, username)
	u.Name = claims.Name
	u.IsVerified = claims.EmailVerified
	u.SocialProviders = []domain.SocialProviderLink{providerLink(claims)}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.notify(queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID.Hex(), Email: u.Email, Username: u.Username,
	}, reqID)
	recordSignIn("apple", true)
	return s.tokenPair(u, true)
}

func providerLink(claims *oauth.Claims) domain.SocialProviderLink {
	return domain.SocialProviderLink{
		Provider:       claims.Provider,
		ProviderUserID: claims.ProviderUserID,
		Email:          normalizeEmail(claims.Email),
		Name:           claims.Name,
		Picture:        claims.Picture,
		LinkedAt:       time.Now().UTC(),
	}
}
