package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointmenthub_backend/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := &model.User{
		ID:      "user-1",
		Email:   "manager@example.com",
		Role:    model.RoleStoreManager,
		StoreID: "store-1",
	}

	token, err := GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "manager@example.com", claims.Email)
	assert.Equal(t, model.RoleStoreManager, claims.Role)
	assert.Equal(t, "store-1", claims.StoreID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	token, err := GenerateToken(&model.User{ID: "u1", Email: "a@b.c", Role: model.RoleClient})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "secret-b")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}
