package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cousinlabs/cousin-link/domain"
	"github.com/cousinlabs/cousin-link/errors"
	"github.com/cousinlabs/cousin-link/internal/token"
)

// TokenBridge exchanges a verification token for the temporary token that
// survives the redirect into the OAuth flow. The verification token is not
// cleared here; the linking callback locates the pending record through the
// bridging token and clears everything on finalization.
type TokenBridge struct {
	repo domain.IdentityRepository
}

func NewTokenBridge(repo domain.IdentityRepository) *TokenBridge {
	return &TokenBridge{repo: repo}
}

// ExchangeForTempToken validates the verification token against the guarded
// filter (live, verified, not yet linked) and issues the bridging token with
// a fresh five-minute expiry.
func (b *TokenBridge) ExchangeForTempToken(ctx context.Context, verificationToken string) (string, error) {
	if verificationToken == "" {
		return "", errors.NewMissingParameter("Verification token is required")
	}

	record, err := b.repo.FindByVerificationToken(ctx, verificationToken, time.Now())
	if stderrors.Is(err, domain.ErrRecordNotFound) {
		return "", errors.NewInvalidOrExpiredToken()
	}
	if err != nil {
		log.Error().Err(err).Msg("Verification token lookup failed")
		return "", errors.NewPersistenceFailure("Failed to look up verification token")
	}

	tempToken, err := token.New()
	if err != nil {
		return "", errors.NewPersistenceFailure("Failed to generate temporary token")
	}

	expiry := time.Now().Add(domain.TokenTTL)
	if _, err := b.repo.SetTempToken(ctx, record.ID, tempToken, expiry); err != nil {
		log.Error().Err(err).Str("wallet", record.WalletAddress).Msg("Failed to store temporary token")
		return "", errors.NewPersistenceFailure("Failed to store temporary token")
	}

	log.Info().
		Str("wallet", record.WalletAddress).
		Time("token_expiry", expiry).
		Msg("Issued temporary bridging token")

	return tempToken, nil
}
