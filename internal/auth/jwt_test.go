package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

// ============================================
// Token generation
// ============================================

func TestGenerateToken(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)

	token, expiresAt, err := service.GenerateToken()

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

// ============================================
// Token validation
// ============================================

func TestValidateToken(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)

	token, _, err := service.GenerateToken()
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, RoleAdmin, claims.Subject)
}

func TestValidateToken_Invalid(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"tampered", "eyJhbGciOiJIUzI1NiJ9.eyJyb2xlIjoiYWRtaW4ifQ.bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service := NewJWTService(testSecret, -time.Minute)

	token, _, err := service.GenerateToken()
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service := NewJWTService(testSecret, time.Hour)
	other := NewJWTService("another-secret-key-also-32-chars!!!", time.Hour)

	token, _, err := service.GenerateToken()
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
