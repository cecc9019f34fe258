package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cousinlabs/cousin-link/domain"
	"github.com/cousinlabs/cousin-link/errors"
	"github.com/cousinlabs/cousin-link/internal/federation"
	"github.com/cousinlabs/cousin-link/internal/wallet"
)

// LinkingService finalizes the identity record, either from the OAuth
// callback or through the signature-authenticated manual path.
type LinkingService struct {
	repo     domain.IdentityRepository
	resolver HandleResolver
	verifier SignatureVerifier
	nonces   NonceRegistry
}

func NewLinkingService(
	repo domain.IdentityRepository,
	resolver HandleResolver,
	verifier SignatureVerifier,
	nonces NonceRegistry,
) *LinkingService {
	return &LinkingService{
		repo:     repo,
		resolver: resolver,
		verifier: verifier,
		nonces:   nonces,
	}
}

// CompleteLink is invoked after the OAuth provider authenticated the user.
// It locates the pending record by the specific bridging token carried
// through the redirect, resolves the handle, atomically writes the final
// identity fields while clearing all transient tokens, and confirms the
// write with a re-read. Any failure blocks the provider sign-in.
func (s *LinkingService) CompleteLink(ctx context.Context, tempToken string, info *federation.ExternalUserInfo) error {
	record, err := s.repo.FindPendingByTempToken(ctx, tempToken, time.Now())
	if stderrors.Is(err, domain.ErrRecordNotFound) {
		log.Warn().Msg("No pending record for bridging token, aborting sign-in")
		return errors.NewInvalidOrExpiredToken()
	}
	if err != nil {
		log.Error().Err(err).Msg("Pending record lookup failed")
		return errors.NewPersistenceFailure("Failed to look up pending record")
	}

	handle := info.Username
	if handle == "" {
		handle, err = s.resolver.Resolve(ctx, info.ProviderUserID)
		if err != nil {
			// The record keeps its tokens and stays re-attemptable until
			// they expire.
			log.Error().Err(err).
				Str("provider_user_id", info.ProviderUserID).
				Msg("Handle resolution failed, aborting sign-in")
			return errors.NewHandleResolutionFailed("Failed to resolve handle")
		}
	}
	handle = strings.TrimPrefix(handle, "@")

	profile := domain.SocialProfile{
		ProviderUserID: info.ProviderUserID,
		DisplayName:    info.DisplayName,
		AvatarURL:      info.PictureURL,
	}
	if _, err := s.repo.FinalizeLink(ctx, record.ID, profile, handle); err != nil {
		log.Error().Err(err).Str("wallet", record.WalletAddress).Msg("Failed to finalize link")
		return errors.NewFinalizationFailed("Failed to finalize link")
	}

	final, err := s.repo.GetByID(ctx, record.ID)
	if err != nil || final == nil || !final.XLinked {
		log.Error().Err(err).Str("wallet", record.WalletAddress).Msg("Post-write confirmation failed")
		return errors.NewFinalizationFailed("Failed to confirm finalized record")
	}

	log.Info().
		Str("wallet", final.WalletAddress).
		Str("handle", final.XHandle).
		Msg("Identity linked via OAuth")

	return nil
}

// LinkHandleManually sets the handle without OAuth, authenticated purely by
// the wallet signature. The wallet must already be NFT-verified.
func (s *LinkingService) LinkHandleManually(ctx context.Context, walletAddress, xHandle, signature, message string) error {
	if walletAddress == "" || xHandle == "" || signature == "" || message == "" {
		return errors.NewMissingParameter("All fields are required")
	}

	if !s.verifier.Verify(walletAddress, message, signature) {
		log.Warn().Str("wallet", walletAddress).Msg("Rejected manual handle link with invalid signature")
		return errors.NewInvalidSignature()
	}

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
		return errors.NewReplayDetected()
	}

	if _, err := s.repo.FindVerifiedByWallet(ctx, walletAddress); err != nil {
		if stderrors.Is(err, domain.ErrRecordNotFound) {
			return errors.NewNotVerified()
		}
		log.Error().Err(err).Str("wallet", walletAddress).Msg("Verified wallet lookup failed")
		return errors.NewPersistenceFailure("Failed to look up wallet")
	}

	handle := strings.TrimPrefix(xHandle, "@")
	if _, err := s.repo.FinalizeHandle(ctx, walletAddress, handle); err != nil {
		log.Error().Err(err).Str("wallet", walletAddress).Msg("Failed to store handle")
		return errors.NewPersistenceFailure("Failed to update record")
	}

	log.Info().Str("wallet", walletAddress).Str("handle", handle).Msg("Identity linked manually")
	return nil
}

// VerifiedMembers returns the public projection of all linked records.
func (s *LinkingService) VerifiedMembers(ctx context.Context) ([]domain.VerifiedMember, error) {
	members, err := s.repo.ListVerifiedMembers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list verified members")
		return nil, errors.NewPersistenceFailure("Failed to list verified members")
	}
	return members, nil
}
