package federation

import "errors"

var (
	ErrInvalidAuthState      = errors.New("invalid or expired auth state parameter")
	ErrExchangeCodeFailed    = errors.New("failed to exchange authorization code for token")
	ErrFetchUserInfoFailed   = errors.New("failed to fetch user info from provider")
	ErrHandleUnresolved      = errors.New("failed to resolve handle for provider user")
	ErrProviderMisconfigured = errors.New("provider is misconfigured")
)
