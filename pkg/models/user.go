package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is an account that can hold a cart.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password_hash" json:"-"` // never exposed
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt"`
}

// Credentials is the body of POST /auth/register and POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetTimestamps sets created_at on first call.
func (u *User) SetTimestamps() {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}
