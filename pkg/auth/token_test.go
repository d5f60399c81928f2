package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/mernshop/storefront/pkg/models"
)

func TestTokens_IssueVerify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	user := models.User{ID: bson.NewObjectID(), Email: "a@x.io"}

	raw, err := tokens.Issue(user)
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, "a@x.io", id.Email)
}

func TestTokens_VerifyRejects(t *testing.T) {
	user := models.User{ID: bson.NewObjectID(), Email: "a@x.io"}
	tokens := NewTokens("secret", time.Hour)

	valid, err := tokens.Issue(user)
	require.NoError(t, err)

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(user)
	require.NoError(t, err)

	otherSecret, err := NewTokens("other", time.Hour).Issue(user)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-an-id",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.Hex()},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: otherSecret},
		{name: "alg none", token: noneAlg},
		{name: "malformed subject", token: badSubject},
		{name: "missing exp", token: noExpiry},
		{name: "tampered", token: valid + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword_HashAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, VerifyPassword("hunter2", hash))
	assert.ErrorIs(t, VerifyPassword("hunter3", hash), ErrPasswordMismatch)
	assert.Error(t, VerifyPassword("hunter2", "not-a-hash"))

	_, err = HashPassword(strings.Repeat("p", MaxPasswordBytes+1), 4)
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
