package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// OnboardingPreferences is collected during first-run setup. IsCompleted
// drives the is_new_user flag on password login.
type OnboardingPreferences struct {
	Gender      string     `bson:"gender,omitempty"      json:"gender,omitempty"`    // "female" | "male" | "other" | "prefer_not_to_say"
	AgeGroup    string     `bson:"age_group,omitempty"   json:"age_group,omitempty"` // "under_18" .. "55_plus"
	SkinType    string     `bson:"skin_type,omitempty"   json:"skin_type,omitempty"` // "dry" | "oily" | "normal" | "combination" | "sensitive"
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	IsCompleted bool       `bson:"is_completed"          json:"is_completed"`
}

type SkinProfile struct {
	AgeRange       string     `bson:"age_range,omitempty"    json:"age_range,omitempty"`
	SkinType       string     `bson:"skin_type,omitempty"    json:"skin_type,omitempty"`
	SkinConcerns   []string   `bson:"skin_concerns"          json:"skin_concerns"`
	CurrentRoutine []string   `bson:"current_routine"        json:"current_routine"`
	Goals          []string   `bson:"goals"                  json:"goals"`
	AvatarURL      string     `bson:"avatar_url,omitempty"   json:"avatar_url,omitempty"`
	AIDetectedType string     `bson:"ai_detected_skin_type,omitempty" json:"ai_detected_skin_type,omitempty"`
	AIConfidence   float64    `bson:"ai_confidence_score,omitempty"   json:"ai_confidence_score,omitempty"`
	LastAnalysisAt *time.Time `bson:"last_analysis_date,omitempty"    json:"last_analysis_date,omitempty"`
}

type ProductPreferences struct {
	BudgetRange         string   `bson:"budget_range,omitempty" json:"budget_range,omitempty"` // "budget" | "mid_range" | "luxury"
	IngredientPrefs     []string `bson:"ingredient_preferences" json:"ingredient_preferences"`
	IngredientBlacklist []string `bson:"ingredient_blacklist"   json:"ingredient_blacklist"`
	PreferredBrands     []string `bson:"preferred_brands"       json:"preferred_brands"`
	PreferredCategories []string `bson:"preferred_categories"   json:"preferred_categories"`
}

type SubscriptionInfo struct {
	Tier      string     `bson:"tier"                 json:"tier"` // "basic" | "plus" | "pro"
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	IsActive  bool       `bson:"is_active"            json:"is_active"`
}

type PrivacySettings struct {
	BlurFaceInPhotos   bool `bson:"blur_face_in_photos"  json:"blur_face_in_photos"`
	ShareAnonymousData bool `bson:"share_anonymous_data" json:"share_anonymous_data"`
	EmailNotifications bool `bson:"email_notifications"  json:"email_notifications"`
	PushNotifications  bool `bson:"push_notifications"   json:"push_notifications"`
	DataRetentionDays  int  `bson:"data_retention_days"  json:"data_retention_days"`
}

// SocialProviderLink binds an external identity provider's user id to this
// account. A (Provider, ProviderUserID) pair appears at most once per account;
// the repo enforces that at push time since Mongo won't.
type SocialProviderLink struct {
	Provider       string    `bson:"provider"         json:"provider"`
	ProviderUserID string    `bson:"provider_user_id" json:"provider_user_id"`
	Email          string    `bson:"email,omitempty"  json:"email,omitempty"`
	Name           string    `bson:"name,omitempty"   json:"name,omitempty"`
	Picture        string    `bson:"picture,omitempty" json:"picture,omitempty"`
	LinkedAt       time.Time `bson:"linked_at"        json:"linked_at"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email"         json:"email"` // stored lowercase
	Username     string             `bson:"username"      json:"username"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"` // absent for social-only accounts

	Onboarding         OnboardingPreferences `bson:"onboarding"          json:"onboarding"`
	Profile            SkinProfile           `bson:"profile"             json:"profile"`
	ProductPreferences ProductPreferences    `bson:"product_preferences" json:"product_preferences"`
	Subscription       SubscriptionInfo      `bson:"subscription"        json:"subscription"`
	PrivacySettings    PrivacySettings       `bson:"privacy_settings"    json:"privacy_settings"`

	SocialProviders []SocialProviderLink `bson:"social_providers" json:"social_providers"`

	IsActive          bool   `bson:"is_active"   json:"is_active"`
	IsVerified        bool   `bson:"is_verified" json:"is_verified"`
	IsAdmin           bool   `bson:"is_admin"    json:"-"`
	VerificationToken string `bson:"verification_token,omitempty" json:"-"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	LastLogin *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
}

// NewUser returns an account with default sub-profiles and status flags set.
func NewUser(email, username string) *User {
	now := time.Now().UTC()
	u := &User{
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.ApplyDefaults()
	return u
}

// ApplyDefaults normalizes a document loaded from storage. Older documents
// predate some sub-profiles, so absent fields are filled here, at the load
// boundary, rather than at every call site.
func (u *User) ApplyDefaults() {
	if u.Subscription.Tier == "" {
		u.Subscription = SubscriptionInfo{Tier: "basic", IsActive: true}
	}
	if u.PrivacySettings.DataRetentionDays == 0 {
		u.PrivacySettings = PrivacySettings{
			BlurFaceInPhotos:   true,
			EmailNotifications: true,
			PushNotifications:  true,
			DataRetentionDays:  365,
		}
	}
	if u.Profile.SkinConcerns == nil {
		u.Profile.SkinConcerns = []string{}
	}
	if u.Profile.CurrentRoutine == nil {
		u.Profile.CurrentRoutine = []string{}
	}
	if u.Profile.Goals == nil {
		u.Profile.Goals = []string{}
	}
	if u.ProductPreferences.IngredientPrefs == nil {
		u.ProductPreferences.IngredientPrefs = []string{}
	}
	if u.ProductPreferences.IngredientBlacklist == nil {
		u.ProductPreferences.IngredientBlacklist = []string{}
	}
	if u.ProductPreferences.PreferredBrands == nil {
		u.ProductPreferences.PreferredBrands = []string{}
	}
	if u.ProductPreferences.PreferredCategories == nil {
		u.ProductPreferences.PreferredCategories = []string{}
	}
	if u.SocialProviders == nil {
		u.SocialProviders = []SocialProviderLink{}
	}
}

// HasProvider reports whether the exact (provider, provider user id) pair is
// already linked.
func (u *User) HasProvider(provider, providerUserID string) bool {
	for _, p := range u.SocialProviders {
		if p.Provider == provider && p.ProviderUserID == providerUserID {
			return true
		}
	}
	return false
}
