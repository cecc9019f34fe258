// Package mongodb implements the identity record store on MongoDB. Records
// are never deleted; expired token fields simply stop matching because every
// guarded lookup carries the expiry predicate in its query filter, and
// finalization unsets them.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cousinlabs/cousin-link/domain"
)

// IdentityRepository is the MongoDB implementation of
// domain.IdentityRepository.
type IdentityRepository struct {
	records *mongo.Collection
}

// NewIdentityRepository creates the repository and ensures its indexes.
func NewIdentityRepository(ctx context.Context, db *mongo.Database) (*IdentityRepository, error) {
	repo := &IdentityRepository{
		records: db.Collection(IdentityRecordsCollection),
	}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// identityIndexModels declares the collection indexes. Deliberately no TTL
// indexes: a TTL index on the expiry fields would have Mongo delete the whole
// document, destroying the permanent identity fields with it. Stale tokens
// are made inert by the expiry guards in the lookup filters instead.
func identityIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "wallet_address", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "temp_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
}

func (r *IdentityRepository) createIndexes(ctx context.Context) error {
	_, err := r.records.Indexes().CreateMany(ctx, identityIndexModels())
	if err != nil {
		return fmt.Errorf("failed to create identity record indexes: %w", err)
	}
	return nil
}

func (r *IdentityRepository) UpsertVerified(ctx context.Context, walletAddress, verificationToken string, expiry time.Time) (*domain.IdentityRecord, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"wallet_address":            walletAddress,
			"nft_verified":              true,
			"verification_token":        verificationToken,
			"verification_token_expiry": expiry,
			"updated_at":                now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record domain.IdentityRecord
	err := r.records.FindOneAndUpdate(ctx, bson.M{"wallet_address": walletAddress}, update, opts).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert identity record: %w", err)
	}
	return &record, nil
}

// verificationTokenFilter matches only a live, unconsumed verification
// token: present, unexpired at now, on a verified and not yet linked record.
func verificationTokenFilter(token string, now time.Time) bson.M {
	return bson.M{
		"verification_token":        token,
		"verification_token_expiry": bson.M{"$gt": now},
		"nft_verified":              true,
		"x_linked":                  bson.M{"$ne": true},
	}
}

func (r *IdentityRepository) FindByVerificationToken(ctx context.Context, token string, now time.Time) (*domain.IdentityRecord, error) {
	return r.findOne(ctx, verificationTokenFilter(token, now))
}

func (r *IdentityRepository) SetTempToken(ctx context.Context, id, tempToken string, expiry time.Time) (*domain.IdentityRecord, error) {
	update := bson.M{
		"$set": bson.M{
			"temp_token":        tempToken,
			"temp_token_expiry": expiry,
			"updated_at":        time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record domain.IdentityRecord
	err := r.records.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set temp token: %w", err)
	}
	return &record, nil
}

// pendingTempTokenFilter matches only a live bridging token on a record
// still awaiting its link.
func pendingTempTokenFilter(tempToken string, now time.Time) bson.M {
	return bson.M{
		"temp_token":        tempToken,
		"temp_token_expiry": bson.M{"$gt": now},
		"nft_verified":      true,
		"x_linked":          bson.M{"$ne": true},
	}
}

func (r *IdentityRepository) FindPendingByTempToken(ctx context.Context, tempToken string, now time.Time) (*domain.IdentityRecord, error) {
	return r.findOne(ctx, pendingTempTokenFilter(tempToken, now))
}

func (r *IdentityRepository) FindVerifiedByWallet(ctx context.Context, walletAddress string) (*domain.IdentityRecord, error) {
	filter := bson.M{
		"wallet_address": walletAddress,
		"nft_verified":   true,
	}
	return r.findOne(ctx, filter)
}

func (r *IdentityRepository) FinalizeLink(ctx context.Context, id string, profile domain.SocialProfile, handle string) (*domain.IdentityRecord, error) {
	update := bson.M{
		"$set": bson.M{
			"x_username":      profile.DisplayName,
			"x_handle":        handle,
			"profile_picture": profile.AvatarURL,
			"x_linked":        true,
			"updated_at":      time.Now(),
		},
		"$unset": clearTokens(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record domain.IdentityRecord
	err := r.records.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize link: %w", err)
	}
	return &record, nil
}

func (r *IdentityRepository) FinalizeHandle(ctx context.Context, walletAddress, handle string) (*domain.IdentityRecord, error) {
	update := bson.M{
		"$set": bson.M{
			"x_handle":   handle,
			"x_linked":   true,
			"updated_at": time.Now(),
		},
		"$unset": clearTokens(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record domain.IdentityRecord
	err := r.records.FindOneAndUpdate(ctx, bson.M{"wallet_address": walletAddress}, update, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize handle: %w", err)
	}
	return &record, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.IdentityRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) ListVerifiedMembers(ctx context.Context) ([]domain.VerifiedMember, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"x_username": bson.M{"$exists": true}},
			bson.M{"x_handle": bson.M{"$exists": true}},
			bson.M{"profile_picture": bson.M{"$exists": true}},
		},
	}
	opts := options.Find().SetProjection(bson.M{
		"x_username":      1,
		"x_handle":        1,
		"profile_picture": 1,
		"_id":             0,
	})

	cursor, err := r.records.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified members: %w", err)
	}
	defer cursor.Close(ctx)

	members := []domain.VerifiedMember{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode verified members: %w", err)
	}
	return members, nil
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.IdentityRecord, error) {
	var record domain.IdentityRecord
	err := r.records.FindOne(ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity record lookup failed: %w", err)
	}
	return &record, nil
}

// clearTokens unsets every transient token field. Finalization and the
// manual path both call this so a consumed flow leaves no live credentials.
func clearTokens() bson.M {
	return bson.M{
		"verification_token":        "",
		"verification_token_expiry": "",
		"temp_token":                "",
		"temp_token_expiry":         "",
	}
}
