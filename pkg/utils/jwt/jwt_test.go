package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexmind_backend/pkg/config"
)

func TestGenerateAndValidate(t *testing.T) {
	Init(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})

	token, err := GenerateToken(42, "owner@example.com", "Owner")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.AccountID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	Init(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{AccountID: 1})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	Init(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateRejectsMissingAccount(t *testing.T) {
	Init(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "x@example.com"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.Error(t, err)
}
