package domain

import "time"

// TokenTTL is the validity window for both the verification token and the
// temporary bridging token.
const TokenTTL = 5 * time.Minute

// IdentityRecord binds a wallet address to its verification and social-link
// state. The wallet address is the natural key; at most one record exists per
// wallet.
type IdentityRecord struct {
	ID                      string     `bson:"_id,omitempty" json:"id,omitempty"`
	WalletAddress           string     `bson:"wallet_address" json:"walletAddress"`
	NFTVerified             bool       `bson:"nft_verified" json:"nftVerified"`
	VerificationToken       string     `bson:"verification_token,omitempty" json:"-"`
	VerificationTokenExpiry *time.Time `bson:"verification_token_expiry,omitempty" json:"-"`
	TempToken               string     `bson:"temp_token,omitempty" json:"-"`
	TempTokenExpiry         *time.Time `bson:"temp_token_expiry,omitempty" json:"-"`
	XLinked                 bool       `bson:"x_linked,omitempty" json:"xLinked,omitempty"`
	XHandle                 string     `bson:"x_handle,omitempty" json:"xHandle,omitempty"`
	XUsername               string     `bson:"x_username,omitempty" json:"xUsername,omitempty"`
	ProfilePicture          string     `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
	CreatedAt               time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt               time.Time  `bson:"updated_at" json:"updatedAt"`
}

// VerifiedMember is the public projection of a linked record, as served by
// the verified-list endpoint. Unset fields are omitted from the payload.
type VerifiedMember struct {
	XUsername      string `bson:"x_username,omitempty" json:"xUsername,omitempty"`
	XHandle        string `bson:"x_handle,omitempty" json:"xHandle,omitempty"`
	ProfilePicture string `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
}

// SocialProfile carries the identity asserted by the OAuth provider after a
// completed handshake.
type SocialProfile struct {
	ProviderUserID string
	DisplayName    string
	AvatarURL      string
}
