package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	t.Run("student token carries L number", func(t *testing.T) {
		lNumber := "L0012345"
		user := &domain.User{
			ID:       "user-1",
			Username: "jordan.park",
			Email:    "jordan.park@example.edu",
			Role:     domain.RoleStudent,
			LNumber:  &lNumber,
		}

		token, expiresAt, err := tm.GenerateToken(user)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		claims, err := tm.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "jordan.park", claims.Username)
		assert.Equal(t, domain.RoleStudent, claims.Role)
		require.NotNil(t, claims.LNumber)
		assert.Equal(t, "L0012345", *claims.LNumber)
	})

	t.Run("worker token has no L number", func(t *testing.T) {
		user := &domain.User{
			ID:       "user-2",
			Username: "desk",
			Email:    "desk@example.edu",
			Role:     domain.RoleWorker,
		}

		token, _, err := tm.GenerateToken(user)
		require.NoError(t, err)

		claims, err := tm.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleWorker, claims.Role)
		assert.Nil(t, claims.LNumber)
	})
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	t.Run("token signed with a different secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", 60)
		token, _, err := other.GenerateToken(&domain.User{ID: "user-1", Role: domain.RoleWorker})
		require.NoError(t, err)

		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := tm.ParseToken("not.a.jwt")
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		short := &TokenManager{secret: []byte("test-secret"), ttl: -time.Minute}
		token, _, err := short.GenerateToken(&domain.User{ID: "user-1", Role: domain.RoleWorker})
		require.NoError(t, err)

		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})
}

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)

	_, expiresAt, err := tm.GenerateToken(&domain.User{ID: "user-1", Role: domain.RoleWorker})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, 5*time.Second)
}
