// Package federation handles the OAuth2 side of identity linking: building
// the authorization redirect, exchanging the callback code, and fetching the
// provider's view of the user.
package federation

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// ExternalUserInfo holds standardized user information retrieved from the
// external OAuth2 provider.
type ExternalUserInfo struct {
	ProviderUserID string
	Username       string // Provider handle, without any @ prefix.
	DisplayName    string
	PictureURL     string
}

// OAuth2Provider is implemented per external provider. The linking service
// only sees this interface.
type OAuth2Provider interface {
	// Name returns the unique provider identifier (e.g. "x").
	Name() string

	// GetAuthCodeURL builds the authorization URL the user is redirected
	// to. state carries the CSRF/correlation key; opts may add PKCE
	// parameters.
	GetAuthCodeURL(state, redirectURL string, opts ...oauth2.AuthCodeOption) string

	// ExchangeCode exchanges an authorization code for a token.
	ExchangeCode(ctx context.Context, redirectURL, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// FetchUserInfo retrieves the provider's profile for the token's user.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error)

	// GetHttpClient returns a client authenticated with the given token.
	GetHttpClient(ctx context.Context, token *oauth2.Token) *http.Client
}
