package idp

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signClaims(t *testing.T, claims *Claims) string {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return tokenString
}

func TestExtractClaims(t *testing.T) {
	subject := uuid.New()
	businessID := uuid.New()
	now := time.Now()

	tokenString := signClaims(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email:        "staff@example.com",
		BusinessHint: businessID.String(),
	})

	identity, err := ExtractClaims(tokenString)
	require.NoError(t, err)

	assert.Equal(t, subject, identity.Subject)
	assert.Equal(t, "staff@example.com", identity.Email)
	require.NotNil(t, identity.BusinessHint)
	assert.Equal(t, businessID, *identity.BusinessHint)
	assert.WithinDuration(t, now.Add(time.Hour), identity.ExpiresAt, time.Second)
}

func TestExtractClaims_MissingSubject(t *testing.T) {
	tokenString := signClaims(t, &Claims{
		Email: "staff@example.com",
	})

	_, err := ExtractClaims(tokenString)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestExtractClaims_MalformedBusinessHint(t *testing.T) {
	tokenString := signClaims(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.New().String(),
		},
		BusinessHint: "not-a-uuid",
	})

	_, err := ExtractClaims(tokenString)
	assert.Error(t, err)
}
