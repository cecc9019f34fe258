package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cousinlabs/cousin-link/domain"
	"github.com/cousinlabs/cousin-link/errors"
	"github.com/cousinlabs/cousin-link/internal/chain"
	"github.com/cousinlabs/cousin-link/internal/token"
	"github.com/cousinlabs/cousin-link/internal/wallet"
)

// VerificationResult is the outcome of an ownership verification attempt.
// VerificationToken is set only when HasNFT is true.
type VerificationResult struct {
	HasNFT            bool   `json:"hasNFT"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// VerificationService transitions a wallet record from unverified to
// NFT-verified and issues the single-use verification token.
type VerificationService struct {
	verifier      SignatureVerifier
	oracle        chain.AssetOracle
	repo          domain.IdentityRepository
	nonces        NonceRegistry
	collectionKey string
}

func NewVerificationService(
	verifier SignatureVerifier,
	oracle chain.AssetOracle,
	repo domain.IdentityRepository,
	nonces NonceRegistry,
	collectionKey string,
) *VerificationService {
	return &VerificationService{
		verifier:      verifier,
		oracle:        oracle,
		repo:          repo,
		nonces:        nonces,
		collectionKey: collectionKey,
	}
}

// VerifyOwnership checks the wallet signature, confirms the wallet holds an
// asset of the target collection, and on success upserts the identity record
// with a fresh verification token. A wallet without a matching asset gets
// hasNFT=false with no token and no persistence mutation. Re-verification
// reissues the token, invalidating the previous one.
func (s *VerificationService) VerifyOwnership(ctx context.Context, walletAddress, signature, message string) (*VerificationResult, error) {
	if walletAddress == "" || signature == "" || message == "" {
		return nil, errors.NewMissingParameter("Wallet address, signature, and message are required")
	}

	if !s.verifier.Verify(walletAddress, message, signature) {
		log.Warn().Str("wallet", walletAddress).Msg("Rejected verification request with invalid signature")
		return nil, errors.NewInvalidSignature()
	}

	if err := s.consumeSignedMessage(ctx, walletAddress, message, signature); err != nil {
		return nil, err
	}

	held, err := chain.HoldsCollectionAsset(ctx, s.oracle, walletAddress, s.collectionKey)
	if err != nil {
		log.Error().Err(err).Str("wallet", walletAddress).Msg("Asset ownership lookup failed")
		return nil, errors.NewOracleUnavailable("Failed to verify NFT ownership")
	}
	if !held {
		return &VerificationResult{HasNFT: false}, nil
	}

	verificationToken, err := token.New()
	if err != nil {
		return nil, errors.NewPersistenceFailure("Failed to generate verification token")
	}

	expiry := time.Now().Add(domain.TokenTTL)
	record, err := s.repo.UpsertVerified(ctx, walletAddress, verificationToken, expiry)
	if err != nil {
		log.Error().Err(err).Str("wallet", walletAddress).Msg("Failed to upsert identity record")
		return nil, errors.NewPersistenceFailure("Failed to store verification")
	}

	log.Info().
		Str("wallet", record.WalletAddress).
		Time("token_expiry", expiry).
		Msg("NFT ownership verified, verification token issued")

	return &VerificationResult{HasNFT: true, VerificationToken: verificationToken}, nil
}

// consumeSignedMessage enforces the replay rules: the message must be fresh
// and bound to the wallet, and its signature is single-use.
func (s *VerificationService) consumeSignedMessage(ctx context.Context, walletAddress, message, signature string) error {
	if err := wallet.CheckMessage(message, walletAddress, time.Now(), wallet.DefaultTolerance); err != nil {
		log.Warn().Err(err).Str("wallet", walletAddress).Msg("Rejected stale or unbound signed message")
		return errors.NewReplayDetected()
	}

	fresh, err := s.nonces.Consume(ctx, signature)
	if err != nil {
		log.Error().Err(err).Msg("Nonce registry unavailable")
		return errors.NewPersistenceFailure("Failed to validate request freshness")
	}
	if !fresh {
		log.Warn().Str("wallet", walletAddress).Msg("Rejected replayed wallet signature")
		return errors.NewReplayDetected()
	}
	return nil
}
