// Package oauth runs the Google OAuth 2.0 authorization-code flow for
// vidsift: it builds the consent URL, collects the code on a local
// callback server, and exchanges or refreshes tokens.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants read-only access to the user's YouTube data.
const Scope = "https://www.googleapis.com/auth/youtube.readonly"

// Flow drives one authorization-code exchange.
type Flow struct {
	config *oauth2.Config
}

// NewFlow creates a Flow for the given OAuth client, redirecting to the
// local callback server on port.
func NewFlow(clientID, clientSecret string, port int) *Flow {
	return &Flow{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", port),
			Scopes:       []string{Scope},
			Endpoint:     google.Endpoint,
		},
	}
}

// NewState returns a random state value for CSRF protection.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthURL returns the consent page URL. Offline access is requested so
// the exchange yields a refresh token.
func (f *Flow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for tokens.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// Refresh obtains a fresh access token from a stored refresh token.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := f.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return token, nil
}
