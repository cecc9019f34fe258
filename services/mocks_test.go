package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cousinlabs/cousin-link/domain"
	"github.com/cousinlabs/cousin-link/internal/chain"
)

// --- Mock implementations ---

type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) UpsertVerified(ctx context.Context, walletAddress, verificationToken string, expiry time.Time) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, walletAddress, verificationToken, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) FindByVerificationToken(ctx context.Context, token string, now time.Time) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) SetTempToken(ctx context.Context, id, tempToken string, expiry time.Time) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, id, tempToken, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) FindPendingByTempToken(ctx context.Context, tempToken string, now time.Time) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, tempToken, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) FindVerifiedByWallet(ctx context.Context, walletAddress string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) FinalizeLink(ctx context.Context, id string, profile domain.SocialProfile, handle string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, id, profile, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) FinalizeHandle(ctx context.Context, walletAddress, handle string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, walletAddress, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockIdentityRepository) ListVerifiedMembers(ctx context.Context) ([]domain.VerifiedMember, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VerifiedMember), args.Error(1)
}

type MockAssetOracle struct {
	mock.Mock
}

func (m *MockAssetOracle) ListOwnedAssets(ctx context.Context, walletAddress string) ([]chain.Asset, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chain.Asset), args.Error(1)
}

type MockNonceRegistry struct {
	mock.Mock
}

func (m *MockNonceRegistry) Consume(ctx context.Context, signature string) (bool, error) {
	args := m.Called(ctx, signature)
	return args.Bool(0), args.Error(1)
}

type MockHandleResolver struct {
	mock.Mock
}

func (m *MockHandleResolver) Resolve(ctx context.Context, providerUserID string) (string, error) {
	args := m.Called(ctx, providerUserID)
	return args.String(0), args.Error(1)
}

// stubVerifier always returns a fixed verdict; the real cryptographic paths
// are covered by the wallet package tests.
type stubVerifier struct {
	ok bool
}

func (s stubVerifier) Verify(walletAddress, message, signature string) bool {
	return s.ok
}
