package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned by repository lookups that match nothing.
var ErrRecordNotFound = errors.New("identity record not found")

// IdentityRepository defines the document-store operations the linking
// protocol needs. All guarded lookups must include the expiry predicate
// (expiry > now) in the filter itself; a TTL sweep alone is not sufficient.
type IdentityRepository interface {
	// UpsertVerified creates or refreshes the record for walletAddress,
	// setting nft_verified and a fresh verification token with its expiry.
	// A previously issued verification token is overwritten.
	UpsertVerified(ctx context.Context, walletAddress, verificationToken string, expiry time.Time) (*IdentityRecord, error)

	// FindByVerificationToken returns the single record holding the given
	// live verification token, with nft_verified set and x_linked unset.
	FindByVerificationToken(ctx context.Context, token string, now time.Time) (*IdentityRecord, error)

	// SetTempToken stores the bridging token on the record. It does not
	// clear the verification token; the linking callback still locates the
	// pending record through the bridging token.
	SetTempToken(ctx context.Context, id, tempToken string, expiry time.Time) (*IdentityRecord, error)

	// FindPendingByTempToken returns the single record holding the given
	// live bridging token, with nft_verified set and x_linked unset.
	FindPendingByTempToken(ctx context.Context, tempToken string, now time.Time) (*IdentityRecord, error)

	// FindVerifiedByWallet returns the record for walletAddress if it has
	// nft_verified set.
	FindVerifiedByWallet(ctx context.Context, walletAddress string) (*IdentityRecord, error)

	// FinalizeLink atomically sets the social identity fields and x_linked,
	// and clears all four transient token fields, on the record with the
	// given id.
	FinalizeLink(ctx context.Context, id string, profile SocialProfile, handle string) (*IdentityRecord, error)

	// FinalizeHandle sets x_handle and x_linked on the wallet's record and
	// clears all transient token fields. Used by the manual path.
	FinalizeHandle(ctx context.Context, walletAddress, handle string) (*IdentityRecord, error)

	// GetByID re-reads a record by its id, for post-write confirmation.
	GetByID(ctx context.Context, id string) (*IdentityRecord, error)

	// ListVerifiedMembers returns the public projection of every record with
	// at least one populated social field.
	ListVerifiedMembers(ctx context.Context) ([]VerifiedMember, error)
}
