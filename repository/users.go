package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/learnlab/backend/models"
)

var ErrNotFound = errors.New("not found")

// UserStore resolves accounts by credential key or id. The password hash
// is excluded unless withPassword is set; only the login path asks for it.
type UserStore interface {
	FindByEmail(ctx context.Context, email string, withPassword bool) (*models.User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

type Users struct {
	col *mongo.Collection
}

func NewUsers(col *mongo.Collection) *Users {
	return &Users{col: col}
}

func (u *Users) FindByEmail(ctx context.Context, email string, withPassword bool) (*models.User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts = opts.SetProjection(bson.M{"passwordHash": 0})
	}

	var user models.User
	err := u.col.FindOne(ctx, bson.M{"email": email}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	opts := options.FindOne().SetProjection(bson.M{"passwordHash": 0})

	var user models.User
	err := u.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
