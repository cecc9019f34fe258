package federation

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/oauth2"
)

// pendingLink is the server-side context carried across the OAuth redirect
// boundary, keyed by the state parameter. It correlates the callback with
// the exact bridging token that started the flow, so concurrent flows for
// different wallets never collide.
type pendingLink struct {
	TempToken    string
	PKCEVerifier string
}

const stateTTL = 5 * time.Minute

// Service drives the OAuth leg of linking for a single provider.
type Service struct {
	provider    OAuth2Provider
	redirectURL string

	pending *ttlcache.Cache[string, *pendingLink]

	// newState is swappable for tests; defaults to a crypto-random value.
	newState func() (string, error)
}

// NewService creates the federation service. redirectURL is the absolute
// callback URL registered with the provider.
func NewService(provider OAuth2Provider, redirectURL string, newState func() (string, error)) *Service {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *pendingLink](stateTTL),
		ttlcache.WithDisableTouchOnHit[string, *pendingLink](),
	)
	go cache.Start()

	return &Service{
		provider:    provider,
		redirectURL: redirectURL,
		pending:     cache,
		newState:    newState,
	}
}

// Stop shuts down the state cache's cleanup goroutine.
func (s *Service) Stop() {
	s.pending.Stop()
}

// BeginLink registers tempToken under a fresh state and returns the
// provider authorization URL to redirect the user to. PKCE (S256) is always
// attached.
func (s *Service) BeginLink(_ context.Context, tempToken string) (string, error) {
	state, err := s.newState()
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	s.pending.Set(state, &pendingLink{TempToken: tempToken, PKCEVerifier: verifier}, ttlcache.DefaultTTL)

	authURL := s.provider.GetAuthCodeURL(state, s.redirectURL, oauth2.S256ChallengeOption(verifier))
	return authURL, nil
}

// CompleteAuth consumes the state from the callback, exchanges the code, and
// fetches the provider profile. It returns the bridging token the flow was
// started with. The state entry is deleted on first use regardless of
// outcome; a replayed callback fails with ErrInvalidAuthState.
func (s *Service) CompleteAuth(ctx context.Context, state, code string) (*ExternalUserInfo, string, error) {
	item := s.pending.Get(state)
	if item == nil {
		return nil, "", ErrInvalidAuthState
	}
	link := item.Value()
	s.pending.Delete(state)

	tok, err := s.provider.ExchangeCode(ctx, s.redirectURL, code, oauth2.VerifierOption(link.PKCEVerifier))
	if err != nil {
		return nil, "", err
	}

	info, err := s.provider.FetchUserInfo(ctx, tok)
	if err != nil {
		return nil, "", err
	}
	return info, link.TempToken, nil
}
