// Package services implements the verification and linking protocol:
// signature-checked NFT verification, the token bridge into the OAuth flow,
// and finalization of the linked identity.
package services

import "context"

// SignatureVerifier validates a detached wallet signature over a message.
type SignatureVerifier interface {
	Verify(walletAddress, message, signature string) bool
}

// NonceRegistry consumes signatures so a signed message cannot be replayed
// within its freshness window.
type NonceRegistry interface {
	// Consume registers the signature; false means it was already used.
	Consume(ctx context.Context, signature string) (bool, error)
}

// HandleResolver maps a provider user id to a handle when the provider
// profile does not carry one.
type HandleResolver interface {
	Resolve(ctx context.Context, providerUserID string) (string, error)
}
