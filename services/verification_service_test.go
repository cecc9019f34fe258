package services_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cousinlabs/cousin-link/domain"
	"github.com/cousinlabs/cousin-link/errors"
	"github.com/cousinlabs/cousin-link/internal/chain"
	"github.com/cousinlabs/cousin-link/services"
)

const (
	testWallet     = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	testCollection = "CoLLection1111111111111111111111111111111111"
)

func freshMessage(wallet string) string {
	return fmt.Sprintf("Verify Cousin NFT ownership for %s at %d", wallet, time.Now().UnixMilli())
}

func TestVerifyOwnership_HappyPath(t *testing.T) {
	repo := new(MockIdentityRepository)
	oracle := new(MockAssetOracle)
	nonces := new(MockNonceRegistry)

	oracle.On("ListOwnedAssets", mock.Anything, testWallet).Return([]chain.Asset{
		{Mint: "MintOther", CollectionKey: "OtherColl"},
		{Mint: "MintA", CollectionKey: testCollection},
	}, nil)
	nonces.On("Consume", mock.Anything, "sig").Return(true, nil)
	repo.On("UpsertVerified", mock.Anything, testWallet, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(&domain.IdentityRecord{ID: "id-1", WalletAddress: testWallet, NFTVerified: true}, nil)

	svc := services.NewVerificationService(stubVerifier{ok: true}, oracle, repo, nonces, testCollection)
	res, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", freshMessage(testWallet))
	require.NoError(t, err)
	assert.True(t, res.HasNFT)
	assert.Len(t, res.VerificationToken, 64, "token must be 32 random bytes hex encoded")

	repo.AssertExpectations(t)
	oracle.AssertExpectations(t)
	nonces.AssertExpectations(t)
}

func TestVerifyOwnership_MissingParameters(t *testing.T) {
	svc := services.NewVerificationService(stubVerifier{ok: true}, new(MockAssetOracle), new(MockIdentityRepository), new(MockNonceRegistry), testCollection)

	for _, tt := range []struct {
		name                       string
		wallet, signature, message string
	}{
		{"no wallet", "", "sig", "msg"},
		{"no signature", testWallet, "", "msg"},
		{"no message", testWallet, "sig", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyOwnership(context.Background(), tt.wallet, tt.signature, tt.message)
			var le *errors.LinkError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, errors.MissingParameter, le.Code)
		})
	}
}

func TestVerifyOwnership_InvalidSignature(t *testing.T) {
	repo := new(MockIdentityRepository)
	oracle := new(MockAssetOracle)

	svc := services.NewVerificationService(stubVerifier{ok: false}, oracle, repo, new(MockNonceRegistry), testCollection)
	_, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", freshMessage(testWallet))

	var le *errors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, errors.InvalidSignature, le.Code)
	// Signature failure short-circuits: no chain lookup, no persistence.
	oracle.AssertNotCalled(t, "ListOwnedAssets", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpsertVerified", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOwnership_NoMatchingAsset(t *testing.T) {
	repo := new(MockIdentityRepository)
	oracle := new(MockAssetOracle)
	nonces := new(MockNonceRegistry)

	oracle.On("ListOwnedAssets", mock.Anything, testWallet).Return([]chain.Asset{
		{Mint: "MintB", CollectionKey: "UnrelatedColl"},
		{Mint: "MintC"},
	}, nil)
	nonces.On("Consume", mock.Anything, "sig").Return(true, nil)

	svc := services.NewVerificationService(stubVerifier{ok: true}, oracle, repo, nonces, testCollection)
	res, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", freshMessage(testWallet))
	require.NoError(t, err)
	assert.False(t, res.HasNFT)
	assert.Empty(t, res.VerificationToken)
	repo.AssertNotCalled(t, "UpsertVerified", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOwnership_OracleUnavailable(t *testing.T) {
	oracle := new(MockAssetOracle)
	nonces := new(MockNonceRegistry)

	oracle.On("ListOwnedAssets", mock.Anything, testWallet).Return(nil, stderrors.New("rpc timeout"))
	nonces.On("Consume", mock.Anything, "sig").Return(true, nil)

	svc := services.NewVerificationService(stubVerifier{ok: true}, oracle, new(MockIdentityRepository), nonces, testCollection)
	_, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", freshMessage(testWallet))

	var le *errors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, errors.OracleUnavailable, le.Code)
}

func TestVerifyOwnership_ReplayedSignature(t *testing.T) {
	oracle := new(MockAssetOracle)
	nonces := new(MockNonceRegistry)

	nonces.On("Consume", mock.Anything, "sig").Return(false, nil)

	svc := services.NewVerificationService(stubVerifier{ok: true}, oracle, new(MockIdentityRepository), nonces, testCollection)
	_, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", freshMessage(testWallet))

	var le *errors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, errors.ReplayDetected, le.Code)
	oracle.AssertNotCalled(t, "ListOwnedAssets", mock.Anything, mock.Anything)
}

func TestVerifyOwnership_StaleMessage(t *testing.T) {
	stale := fmt.Sprintf("Verify Cousin NFT ownership for %s at %d",
		testWallet, time.Now().Add(-time.Hour).UnixMilli())

	svc := services.NewVerificationService(stubVerifier{ok: true}, new(MockAssetOracle), new(MockIdentityRepository), new(MockNonceRegistry), testCollection)
	_, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", stale)

	var le *errors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, errors.ReplayDetected, le.Code)
}

func TestVerifyOwnership_PersistenceFailure(t *testing.T) {
	repo := new(MockIdentityRepository)
	oracle := new(MockAssetOracle)
	nonces := new(MockNonceRegistry)

	oracle.On("ListOwnedAssets", mock.Anything, testWallet).Return([]chain.Asset{
		{Mint: "MintA", CollectionKey: testCollection},
	}, nil)
	nonces.On("Consume", mock.Anything, "sig").Return(true, nil)
	repo.On("UpsertVerified", mock.Anything, testWallet, mock.Anything, mock.Anything).
		Return(nil, stderrors.New("write concern failed"))

	svc := services.NewVerificationService(stubVerifier{ok: true}, oracle, repo, nonces, testCollection)
	_, err := svc.VerifyOwnership(context.Background(), testWallet, "sig", freshMessage(testWallet))

	var le *errors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, errors.PersistenceFailure, le.Code)
}
