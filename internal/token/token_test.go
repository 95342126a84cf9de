package token

import (
	"testing"
	"time"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	svc := NewService("test-secret")

	signed, err := svc.Issue(42, "alice", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestIssueWithoutSecret(t *testing.T) {
	t.Parallel()
	svc := NewService("")

	_, err := svc.Issue(1, "alice", models.RoleUser)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	signed, err := NewService("secret-a").Issue(1, "alice", models.RoleUser)
	require.NoError(t, err)

	_, err = NewService("secret-b").Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()
	svc := NewService("test-secret")
	// Issue a token that expired an hour ago.
	svc.now = func() time.Time { return time.Now().Add(-2 * TTL) }

	signed, err := svc.Issue(1, "alice", models.RoleUser)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	t.Parallel()
	svc := NewService("test-secret")

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Verify(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestClaimsCanMutate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		claims  Claims
		ownerID uint
		want    bool
	}{
		{"Owner", Claims{UserID: 7, Role: models.RoleUser}, 7, true},
		{"Other User", Claims{UserID: 7, Role: models.RoleUser}, 8, false},
		{"Admin Not Owner", Claims{UserID: 1, Role: models.RoleAdmin}, 8, true},
		{"Admin Owner", Claims{UserID: 8, Role: models.RoleAdmin}, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.CanMutate(tt.ownerID))
		})
	}
}
