package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/learnlab/backend/models"
)

// RefreshTokenStore records issued refresh tokens by jti so a rotated or
// revoked token cannot be replayed for its remaining signed lifetime.
type RefreshTokenStore interface {
	Insert(ctx context.Context, rt models.RefreshToken) error
	// Rotate marks jti revoked and replaced. It reports false when the jti
	// was already revoked, expired, or never issued.
	Rotate(ctx context.Context, jti, replacedBy string) (bool, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID bson.ObjectID) error
}

type RefreshTokens struct {
	col *mongo.Collection
}

func NewRefreshTokens(col *mongo.Collection) *RefreshTokens {
	return &RefreshTokens{col: col}
}

func (r *RefreshTokens) Insert(ctx context.Context, rt models.RefreshToken) error {
	_, err := r.col.InsertOne(ctx, rt)
	return err
}

func (r *RefreshTokens) Rotate(ctx context.Context, jti, replacedBy string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{
		"jti":       jti,
		"revokedAt": bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": now},
	}, bson.M{
		"$set": bson.M{
			"revokedAt":  now,
			"replacedBy": replacedBy,
		},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *RefreshTokens) Revoke(ctx context.Context, jti string) error {
	now := time.Now().UTC()
	_, err := r.col.UpdateOne(ctx, bson.M{
		"jti":       jti,
		"revokedAt": bson.M{"$exists": false},
	}, bson.M{
		"$set": bson.M{"revokedAt": now},
	})
	return err
}

func (r *RefreshTokens) RevokeAllForUser(ctx context.Context, userID bson.ObjectID) error {
	now := time.Now().UTC()
	_, err := r.col.UpdateMany(ctx, bson.M{
		"userId":    userID,
		"revokedAt": bson.M{"$exists": false},
	}, bson.M{
		"$set": bson.M{"revokedAt": now},
	})
	return err
}
