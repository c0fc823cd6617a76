package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateSessionToken(userID, "ana@example.com", model.RoleClient)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(SessionTokenExpiry), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, string(model.RoleClient), claims.Role)
}

func TestJWTService_EmptySecretRefusesToSign(t *testing.T) {
	svc := NewJWTService("")
	assert.False(t, svc.Ready())

	_, _, err := svc.GenerateSessionToken(uuid.New(), "ana@example.com", model.RoleClient)
	assert.ErrorIs(t, err, apperrors.ErrSigningSecretMissing)
}

func TestJWTService_ValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a").GenerateSessionToken(uuid.New(), "ana@example.com", model.RoleClient)
	assert.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_ValidateRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret").ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
