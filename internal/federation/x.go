package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

var (
	XAuthURL          = "https://twitter.com/i/oauth2/authorize"
	XTokenURL         = "https://api.twitter.com/2/oauth2/token"
	XUserInfoEndpoint = "https://api.twitter.com/2/users/me?user.fields=profile_image_url"
)

// XProvider implements OAuth2Provider for X (Twitter) OAuth 2.0 with PKCE.
type XProvider struct {
	clientID     string
	clientSecret string
}

func NewXProvider(clientID, clientSecret string) (*XProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	return &XProvider{clientID: clientID, clientSecret: clientSecret}, nil
}

func (x *XProvider) Name() string { return "x" }

func (x *XProvider) oauth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     x.clientID,
		ClientSecret: x.clientSecret,
		RedirectURL:  redirectURL,
		// users.read and tweet.read are the minimum scopes the /2/users/me
		// endpoint accepts.
		Scopes: []string{"users.read", "tweet.read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   XAuthURL,
			TokenURL:  XTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (x *XProvider) GetAuthCodeURL(state, redirectURL string, opts ...oauth2.AuthCodeOption) string {
	return x.oauth2Config(redirectURL).AuthCodeURL(state, opts...)
}

func (x *XProvider) ExchangeCode(ctx context.Context, redirectURL, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	tok, err := x.oauth2Config(redirectURL).Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeCodeFailed, err)
	}
	return tok, nil
}

func (x *XProvider) GetHttpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return x.oauth2Config("").Client(ctx, token)
}

// FetchUserInfo retrieves the authenticated user's profile from the X API.
func (x *XProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := x.GetHttpClient(ctx, token)

	resp, err := client.Get(XUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: x: %v", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: x: reading response: %v", ErrFetchUserInfoFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: x: status %d, body: %s", ErrFetchUserInfoFailed, resp.StatusCode, string(body))
	}

	var raw struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: x: unmarshalling response: %v", ErrFetchUserInfoFailed, err)
	}
	if raw.Data.ID == "" {
		return nil, fmt.Errorf("%w: x: response missing user id", ErrFetchUserInfoFailed)
	}

	return &ExternalUserInfo{
		ProviderUserID: raw.Data.ID,
		Username:       raw.Data.Username,
		DisplayName:    raw.Data.Name,
		PictureURL:     raw.Data.ProfileImageURL,
	}, nil
}
