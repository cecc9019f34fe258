// Package wallet verifies that a claimed wallet address authorized a signed
// message. Addresses are base58-encoded ed25519 public keys; signatures are
// base58-encoded detached ed25519 signatures over the UTF-8 message bytes.
package wallet

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

// Verifier checks detached wallet signatures. It holds no state and is safe
// for concurrent use.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify reports whether signature is a valid detached signature by
// walletAddress over message. It fails closed: malformed addresses,
// undecodable signatures, and wrong key sizes all return false, never an
// error or panic.
func (v *Verifier) Verify(walletAddress, message, signature string) bool {
	pubKey, err := base58.Decode(walletAddress)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return false
	}

	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(pubKey), []byte(message), sig)
}

// ValidAddress reports whether s decodes to an ed25519 public key. Used to
// sanity-check the configured collection address at startup; wallet
// addresses are checked implicitly by Verify.
func ValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == ed25519.PublicKeySize
}
