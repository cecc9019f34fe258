package federation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/cousinlabs/cousin-link/internal/federation"
)

func TestNewXProvider_RequiresCredentials(t *testing.T) {
	_, err := federation.NewXProvider("", "secret")
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)

	_, err = federation.NewXProvider("id", "")
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)

	p, err := federation.NewXProvider("id", "secret")
	require.NoError(t, err)
	assert.Equal(t, "x", p.Name())
}

func TestXProvider_GetAuthCodeURL(t *testing.T) {
	p, err := federation.NewXProvider("client-id", "client-secret")
	require.NoError(t, err)

	authURL := p.GetAuthCodeURL("state-123", "https://app.example.com/auth/x/callback",
		oauth2.S256ChallengeOption("verifier-value-verifier-value-verifier-value-vvv"))

	assert.Contains(t, authURL, federation.XAuthURL)
	assert.Contains(t, authURL, "state=state-123")
	assert.Contains(t, authURL, "client_id=client-id")
	assert.Contains(t, authURL, "code_challenge=")
	assert.Contains(t, authURL, "code_challenge_method=S256")
}

func TestXProvider_FetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer x-access-token")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{
				"id":                "12345",
				"name":              "Wallet Cousin",
				"username":          "wallet_cousin",
				"profile_image_url": "https://pbs.example.com/avatar.jpg",
			},
		})
	}))
	defer srv.Close()

	oldEndpoint := federation.XUserInfoEndpoint
	federation.XUserInfoEndpoint = srv.URL
	defer func() { federation.XUserInfoEndpoint = oldEndpoint }()

	p, err := federation.NewXProvider("id", "secret")
	require.NoError(t, err)

	info, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "x-access-token"})
	require.NoError(t, err)
	assert.Equal(t, "12345", info.ProviderUserID)
	assert.Equal(t, "wallet_cousin", info.Username)
	assert.Equal(t, "Wallet Cousin", info.DisplayName)
	assert.Equal(t, "https://pbs.example.com/avatar.jpg", info.PictureURL)
}

func TestXProvider_FetchUserInfo_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{}})
	}))
	defer srv.Close()

	oldEndpoint := federation.XUserInfoEndpoint
	federation.XUserInfoEndpoint = srv.URL
	defer func() { federation.XUserInfoEndpoint = oldEndpoint }()

	p, err := federation.NewXProvider("id", "secret")
	require.NoError(t, err)

	_, err = p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.ErrorIs(t, err, federation.ErrFetchUserInfoFailed)
}

func TestXProvider_FetchUserInfo_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	oldEndpoint := federation.XUserInfoEndpoint
	federation.XUserInfoEndpoint = srv.URL
	defer func() { federation.XUserInfoEndpoint = oldEndpoint }()

	p, err := federation.NewXProvider("id", "secret")
	require.NoError(t, err)

	_, err = p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.ErrorIs(t, err, federation.ErrFetchUserInfoFailed)
	assert.Contains(t, err.Error(), "status 401")
}
