package services_test

import (
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRegisterAndLogin(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	resp, err := env.auth.Register(t.Context(), &models.RegisterRequest{
		Username: "steve",
		Email:    "Steve@Example.com",
		Password: "diamonds1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "steve@example.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)

	claims, err := env.auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	t.Run("login", func(t *testing.T) {
		login, err := env.auth.Login(t.Context(), &models.LoginRequest{Email: "steve@example.com", Password: "diamonds1"})
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, login.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Login(t.Context(), &models.LoginRequest{Email: "steve@example.com", Password: "emeralds1"})
		require.ErrorIs(t, err, pkg.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.auth.Login(t.Context(), &models.LoginRequest{Email: "alex@example.com", Password: "diamonds1"})
		require.ErrorIs(t, err, pkg.ErrUnauthorized)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.auth.Register(t.Context(), &models.RegisterRequest{
			Username: "steve2",
			Email:    "steve@example.com",
			Password: "diamonds1",
		})
		require.ErrorIs(t, err, pkg.ErrAlreadyExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := env.auth.Register(t.Context(), &models.RegisterRequest{
			Username: "alex",
			Email:    "alex@example.com",
			Password: "short",
		})
		require.ErrorIs(t, err, pkg.ErrBadRequest)
	})
}

func TestAuthValidateToken(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	_, err := env.auth.ValidateToken("not-a-jwt")
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestAuthInvitationSetsPassword(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Invited", true)
	claim := submitClaim(t, env, server.ID, "invitee", "invitee@example.com")
	_, err := env.claims.Approve(t.Context(), claim.ID)
	require.NoError(t, err)
	invite := waitMail(t, env.mailer.invites)

	_, err = env.auth.Login(t.Context(), &models.LoginRequest{Email: "invitee@example.com", Password: "!"})
	require.ErrorIs(t, err, pkg.ErrUnauthorized)

	require.NoError(t, env.auth.ResetPassword(t.Context(), invite.Token, "newpassword"))

	login, err := env.auth.Login(t.Context(), &models.LoginRequest{Email: "invitee@example.com", Password: "newpassword"})
	require.NoError(t, err)

	profile, err := env.auth.GetProfile(t.Context(), login.User.ID)
	require.NoError(t, err)
	require.Len(t, profile.OwnedServers, 1)
	assert.Equal(t, server.ID, profile.OwnedServers[0].ID)

	// Tokens are single use.
	err = env.auth.ResetPassword(t.Context(), invite.Token, "anotherpassword")
	require.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestAuthForgotPassword(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	_, err := env.auth.Register(t.Context(), &models.RegisterRequest{
		Username: "forgetful",
		Email:    "forgetful@example.com",
		Password: "original1",
	})
	require.NoError(t, err)

	t.Run("unknown email looks the same", func(t *testing.T) {
		wait, err := env.auth.ForgotPassword(t.Context(), "nobody@example.com")
		require.NoError(t, err)
		assert.Zero(t, wait)
	})

	wait, err := env.auth.ForgotPassword(t.Context(), "forgetful@example.com")
	require.NoError(t, err)
	assert.Zero(t, wait)
	mail := waitMail(t, env.mailer.resets)
	assert.Equal(t, "forgetful@example.com", mail.To)

	t.Run("cooldown", func(t *testing.T) {
		wait, err := env.auth.ForgotPassword(t.Context(), "forgetful@example.com")
		require.NoError(t, err)
		assert.Greater(t, wait, 0)
		assert.LessOrEqual(t, wait, 90)
	})

	t.Run("invalid token", func(t *testing.T) {
		err := env.auth.ResetPassword(t.Context(), "deadbeef", "whatever1")
		require.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	require.NoError(t, env.auth.ResetPassword(t.Context(), mail.Token, "replaced1"))

	_, err = env.auth.Login(t.Context(), &models.LoginRequest{Email: "forgetful@example.com", Password: "original1"})
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
	_, err = env.auth.Login(t.Context(), &models.LoginRequest{Email: "forgetful@example.com", Password: "replaced1"})
	require.NoError(t, err)
}

func TestAuthExpiredResetToken(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	resp, err := env.auth.Register(t.Context(), &models.RegisterRequest{
		Username: "latecomer",
		Email:    "latecomer@example.com",
		Password: "original1",
	})
	require.NoError(t, err)

	const token = "expired-token"
	require.NoError(t, env.repos.token.Create(t.Context(), &models.PasswordResetToken{
		UserID:    resp.User.ID,
		TokenHash: sha256Hex(token),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	err = env.auth.ResetPassword(t.Context(), token, "replaced1")
	require.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestAuthUpdateProfile(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	first, err := env.auth.Register(t.Context(), &models.RegisterRequest{
		Username: "first", Email: "first@example.com", Password: "password1",
	})
	require.NoError(t, err)
	_, err = env.auth.Register(t.Context(), &models.RegisterRequest{
		Username: "second", Email: "second@example.com", Password: "password1",
	})
	require.NoError(t, err)

	name := "renamed"
	user, err := env.auth.UpdateProfile(t.Context(), first.User.ID, &models.UpdateProfileRequest{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Username)

	taken := "second"
	_, err = env.auth.UpdateProfile(t.Context(), first.User.ID, &models.UpdateProfileRequest{Username: &taken})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)

	wrong, next := "wrongpass", "password2"
	_, err = env.auth.UpdateProfile(t.Context(), first.User.ID, &models.UpdateProfileRequest{
		CurrentPassword: &wrong,
		NewPassword:     &next,
	})
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
}
