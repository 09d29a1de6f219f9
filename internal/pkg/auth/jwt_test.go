package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniz/labstock/internal/app/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       42,
		Email:    "jane@lab.edu",
		Name:     "Jane Doe",
		RoleType: models.RoleStudent,
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	service := NewJWTService(JWTConfig{
		SecretKey:       "test-secret-key",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "labstock.test",
	})

	accessToken, refreshToken, expiresIn, refreshExpiresIn, err := service.GenerateTokenPair(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.Equal(t, 3600, expiresIn)
	assert.Equal(t, 86400, refreshExpiresIn)

	claims, err := service.ValidateAndExtractClaims(accessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "jane@lab.edu", claims.Email)
	assert.Equal(t, "student", claims.RoleType)
	assert.Equal(t, "labstock.test", claims.Issuer)
}

func TestValidateExpiredToken(t *testing.T) {
	service := NewJWTService(JWTConfig{
		SecretKey:       "test-secret-key",
		AccessTokenExp:  -time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "labstock.test",
	})

	accessToken, _, _, _, err := service.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewJWTService(JWTConfig{
		SecretKey:      "secret-one",
		AccessTokenExp: time.Hour,
	})
	verifier := NewJWTService(JWTConfig{
		SecretKey:      "secret-two",
		AccessTokenExp: time.Hour,
	})

	accessToken, _, _, _, err := issuer.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(accessToken)
	assert.Error(t, err)
}

func TestValidateAndExtractClaimsEmpty(t *testing.T) {
	service := NewJWTService(JWTConfig{SecretKey: "x", AccessTokenExp: time.Hour})
	_, err := service.ValidateAndExtractClaims("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	// A raw token without the prefix passes through
	token, err = ExtractBearerToken("abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cretpass1")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass1", hash)

	assert.True(t, CheckPassword(hash, "s3cretpass1"))
	assert.False(t, CheckPassword(hash, "wrongpass"))
}
