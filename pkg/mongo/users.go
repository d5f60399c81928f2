package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/mernshop/storefront/pkg/models"
)

// CreateUser inserts u and sets its ID. A taken email yields global.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	u.SetTimestamps()

	_, err := s.collection(usersCollection).InsertOne(ctx, u)
	return translate(err)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.collection(usersCollection).FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&u)
	if err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}
