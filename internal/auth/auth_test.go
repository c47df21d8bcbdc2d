package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestGenerateToken(t *testing.T) {
	secret := "test-secret-key"

	token, jti, err := GenerateToken(secret, "user-123", "alice", "USER", time.Hour)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, jti)
}

func TestGenerateToken_UniqueJTIs(t *testing.T) {
	secret := "test-secret-key"

	token1, jti1, err1 := GenerateToken(secret, "user-123", "alice", "USER", time.Hour)
	token2, jti2, err2 := GenerateToken(secret, "user-123", "alice", "USER", time.Hour)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NotEqual(t, jti1, jti2)
	assert.NotEqual(t, token1, token2)
}

func TestParseToken(t *testing.T) {
	secret := "test-secret-key"
	userID := "user-123"

	t.Run("valid token", func(t *testing.T) {
		token, jti, err := GenerateToken(secret, userID, "alice", "USER", time.Hour)
		assert.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.NoError(t, err)
		assert.NotNil(t, claims)
		assert.Equal(t, userID, claims.Sub)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, "USER", claims.Role)
		assert.Equal(t, jti, claims.ID)
	})

	t.Run("invalid signature", func(t *testing.T) {
		token, _, err := GenerateToken("wrong-secret", userID, "alice", "USER", time.Hour)
		assert.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("expired token", func(t *testing.T) {
		c := Claims{
			Sub:      userID,
			Username: "alice",
			Role:     "USER",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
		token, err := tkn.SignedString([]byte(secret))
		assert.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("malformed token", func(t *testing.T) {
		claims, err := ParseToken(secret, "not.a.valid.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestHashPassword(t *testing.T) {
	password := "Testpassword123!"

	hash, err := HashPassword(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
}

func TestVerifyPassword(t *testing.T) {
	password := "Testpassword123!"

	hash, err := HashPassword(password)
	assert.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		assert.True(t, VerifyPassword(hash, password))
	})

	t.Run("wrong password", func(t *testing.T) {
		assert.False(t, VerifyPassword(hash, "wrongpassword"))
	})

	t.Run("different hash each time", func(t *testing.T) {
		hash2, err := HashPassword(password)
		assert.NoError(t, err)
		assert.NotEqual(t, hash, hash2)
		assert.True(t, VerifyPassword(hash2, password))
	})
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "Str0ng!pass", nil},
		{"too short", "S1!a", ErrPasswordTooShort},
		{"no uppercase", "weakpass1!", ErrPasswordNoUpper},
		{"no lowercase", "WEAKPASS1!", ErrPasswordNoLower},
		{"no number", "Weakpass!!", ErrPasswordNoNumber},
		{"no special char", "Weakpass11", ErrPasswordNoSpecialChar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
