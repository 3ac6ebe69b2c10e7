package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
)

const usersColl = "users"

func (s *Store) EnsureUserIndexes(ctx context.Context) error {
	coll := s.DB.Collection(usersColl)

	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "social_providers.provider", Value: 1},
			{Key: "social_providers.provider_user_id", Value: 1},
		},
	}); err != nil {
		return err
	}
	// username is intentionally NOT unique; duplicates are allowed outside
	// the Apple signup path.
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
	})
	return err
}

// CreateUser validates the document at the store boundary (no duplicate
// provider links) and inserts it. Duplicate email surfaces as ErrValidation.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.insert")
	defer sp.Finish()

	seen := map[string]bool{}
	for _, p := range u.SocialProviders {
		key := p.Provider + "\x00" + p.ProviderUserID
		if seen[key] {
			return fmt.Errorf("%w: duplicate social provider link %s/%s",
				apperrors.ErrValidation, p.Provider, p.ProviderUserID)
		}
		seen[key] = true
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	res, err := s.DB.Collection(usersColl).InsertOne(ctx, u)
	if err != nil {
		sp.SetTag("error", err)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email already registered", apperrors.ErrValidation)
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	err := s.DB.Collection(usersColl).FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ApplyDefaults()
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindUserByProvider matches on an existing social provider link.
func (s *Store) FindUserByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"social_providers": bson.M{"$elemMatch": bson.M{
		"provider":         provider,
		"provider_user_id": providerUserID,
	}}})
}

// FindUserByProviderOrEmail is the Google lookup: an existing link for the
// provider id, or any account carrying the claimed email.
func (s *Store) FindUserByProviderOrEmail(ctx context.Context, provider, providerUserID, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"social_providers": bson.M{"$elemMatch": bson.M{
			"provider":         provider,
			"provider_user_id": providerUserID,
		}}},
		bson.M{"email": email},
	}})
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	err := s.DB.Collection(usersColl).
		FindOne(ctx, bson.M{"username": username}, options.FindOne().SetProjection(bson.M{"_id": 1})).
		Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login": time.Now().UTC()}})
	return err
}

// PushProviderLink appends a social provider link unless that exact
// (provider, provider_user_id) pair is already present, so repeated sign-ins
// never produce duplicate entries.
func (s *Store) PushProviderLink(ctx context.Context, id primitive.ObjectID, link domain.SocialProviderLink) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.push_provider",
		tracer.Tag("provider", link.Provider))
	defer sp.Finish()

	if link.LinkedAt.IsZero() {
		link.LinkedAt = time.Now().UTC()
	}
	_, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{
			"_id": id,
			"social_providers": bson.M{"$not": bson.M{"$elemMatch": bson.M{
				"provider":         link.Provider,
				"provider_user_id": link.ProviderUserID,
			}}},
		},
		bson.M{
			"$push": bson.M{"social_providers": link},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		sp.SetTag("error", err)
	}
	return err
}

// MarkVerified flips the verified flag and clears the pending token.
func (s *Store) MarkVerified(ctx context.Context, email string) error {
	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"verification_token": ""},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, email, hash string) error {
	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateOnboarding(ctx context.Context, id primitive.ObjectID, prefs domain.OnboardingPreferences) error {
	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"onboarding": prefs, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeactivateUser soft-deletes; documents are never physically removed.
func (s *Store) DeactivateUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
