package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestJWT_RoundTrip(t *testing.T) {
	generator, err := NewJWTGenerator(testSecret, "tradepulse", time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "tradepulse"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice", "Alice T.")
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice T.", claims.DisplayName)
}

func TestJWT_BearerPrefixStripped(t *testing.T) {
	generator, err := NewJWTGenerator(testSecret, "tradepulse", time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "tradepulse"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice", "")
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestJWT_ExpiredToken(t *testing.T) {
	generator, err := NewJWTGenerator(testSecret, "tradepulse", -time.Minute)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "tradepulse"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	generator, err := NewJWTGenerator(testSecret, "tradepulse", time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "a different secret", Issuer: "tradepulse"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWT_WrongIssuer(t *testing.T) {
	generator, err := NewJWTGenerator(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "tradepulse"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWT_MissingToken(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)

	_, err = validator.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, err := GetUserFromContext(ctx)
	assert.Error(t, err)

	ctx = SetUserInContext(ctx, &UserContext{Username: "alice", DisplayName: "Alice T."})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}
