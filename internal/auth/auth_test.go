package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/auth"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, auth.CheckPassword("hunter2", hash))
	require.False(t, auth.CheckPassword("hunter3", hash))
	require.False(t, auth.CheckPassword("hunter2", "not a hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	service := auth.NewService("test-secret", time.Hour)

	token, err := service.GenerateToken(7, "admin", true)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "admin", claims.Username)
	require.True(t, claims.IsAdmin)
}

func TestTokenRejections(t *testing.T) {
	t.Parallel()

	service := auth.NewService("test-secret", time.Hour)

	_, err := service.ValidateToken("garbage")
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	// Token signed with a different secret
	other := auth.NewService("other-secret", time.Hour)
	token, err := other.GenerateToken(1, "user", false)
	require.NoError(t, err)
	_, err = service.ValidateToken(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	// Expired token
	expired := auth.NewService("test-secret", -time.Hour)
	token, err = expired.GenerateToken(1, "user", false)
	require.NoError(t, err)
	_, err = service.ValidateToken(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
