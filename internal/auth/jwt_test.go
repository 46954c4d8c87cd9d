package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolfin/backend/internal/domain"
)

const testSecret = "test-secret"

func testUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "accountant@school.test",
		Role:  role,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	u := testUser(domain.RoleAccountant)

	token, err := GenerateToken(u, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, domain.RoleAccountant, claims.Role)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testUser(domain.RoleAdmin), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken(testUser(domain.RoleAdmin), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	require.Error(t, err)
}

func TestValidateToken_InvalidRole(t *testing.T) {
	u := &domain.User{ID: uuid.New(), Email: "x@school.test", Role: domain.Role("superuser")}
	token, err := GenerateToken(u, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	require.Error(t, err)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	c := &Claims{UserID: uuid.New(), Role: domain.RoleAdmin}
	ctx := ContextWithClaims(t.Context(), c)

	got, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, c, got)
}
