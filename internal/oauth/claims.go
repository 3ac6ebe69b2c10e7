package oauth

// Claims is the normalized identity claim set returned by a provider
// verifier, independent of which provider produced it.
type Claims struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
}
