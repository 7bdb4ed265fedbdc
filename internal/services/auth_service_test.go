package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/repository"
)

func setupAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()

	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepository(db, repository.DriverSQLite)
	svc := NewAuthService(
		users,
		[]string{"Alice@Example.com", "bob@example.com"},
		"client-id", "client-secret", "http://localhost/callback",
		"test-secret",
		24,
	)
	return svc, users
}

func seedAuthUser(t *testing.T, users *repository.UserRepository) *models.User {
	t.Helper()
	user, err := models.NewUser("alice@example.com", "Alice")
	require.NoError(t, err)
	require.NoError(t, users.Add(context.Background(), user))
	return user
}

func TestAuthService_Sessions(t *testing.T) {
	t.Run("issued token round-trips", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)

		session, err := svc.issueSession(user)
		require.NoError(t, err)
		require.NotEmpty(t, session.Token)
		assert.Equal(t, user.ID, session.User.ID)

		claims, err := svc.ValidateSession(session.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.Subject)
		assert.Equal(t, "alice@example.com", claims.Email)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		svc, _ := setupAuthService(t)

		_, err := svc.ValidateSession("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)

		other := NewAuthService(users, nil, "", "", "", "other-secret", 24)
		session, err := other.issueSession(user)
		require.NoError(t, err)

		_, err = svc.ValidateSession(session.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthService_APIKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("validates the creation-time key", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)

		resolved, err := svc.ValidateAPIKey(ctx, user.APIKey)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
	})

	t.Run("rotation invalidates the old key", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)

		newKey, err := svc.RotateAPIKey(ctx, user.ID)
		require.NoError(t, err)
		require.NotEqual(t, user.APIKey, newKey)

		_, err = svc.ValidateAPIKey(ctx, user.APIKey)
		assert.ErrorIs(t, err, models.ErrInvalidAPIKey)

		resolved, err := svc.ValidateAPIKey(ctx, newKey)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
	})

	t.Run("rejects empty and unknown keys", func(t *testing.T) {
		svc, _ := setupAuthService(t)

		_, err := svc.ValidateAPIKey(ctx, "  ")
		assert.ErrorIs(t, err, models.ErrInvalidAPIKey)

		_, err = svc.ValidateAPIKey(ctx, "deadbeef")
		assert.ErrorIs(t, err, models.ErrInvalidAPIKey)
	})
}

func TestAuthService_PasswordFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("set then login", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)

		require.NoError(t, svc.SetPassword(ctx, user.ID, "hunter2hunter2"))

		session, err := svc.LoginWithPassword(ctx, "alice@example.com", "hunter2hunter2")
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.User.ID)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)
		require.NoError(t, svc.SetPassword(ctx, user.ID, "hunter2hunter2"))

		_, err := svc.LoginWithPassword(ctx, "alice@example.com", "wrong-password")
		wrongPw := err

		_, err = svc.LoginWithPassword(ctx, "nobody@example.com", "hunter2hunter2")
		assert.Equal(t, wrongPw, err)
		assert.ErrorIs(t, err, models.ErrInvalidPassword)
	})

	t.Run("login fails before a password is set", func(t *testing.T) {
		svc, users := setupAuthService(t)
		seedAuthUser(t, users)

		_, err := svc.LoginWithPassword(ctx, "alice@example.com", "whatever-pass")
		assert.ErrorIs(t, err, models.ErrInvalidPassword)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc, users := setupAuthService(t)
		user := seedAuthUser(t, users)

		err := svc.SetPassword(ctx, user.ID, "short")
		assert.ErrorIs(t, err, models.ErrPasswordTooShort)
	})
}
