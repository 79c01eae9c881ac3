package service

import (
	"context"
	"testing"

	"bookkeeping/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.auth.Register(ctx, RegisterRequest{
		Email: "A@B.com", Password: "123456", CompanyName: "X", Name: "Y",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "a@b.com", reg.User.Email)
	assert.Equal(t, "X", reg.User.CompanyName)

	login, err := h.auth.Login(ctx, LoginRequest{Email: "a@b.com", Password: "123456"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.NotNil(t, login.User.LastLoginAt)

	t.Run("wrong password", func(t *testing.T) {
		_, err := h.auth.Login(ctx, LoginRequest{Email: "a@b.com", Password: "654321"})
		assertKind(t, err, apperror.KindUnauthorized)
		assert.Equal(t, "Invalid email or password", apperror.From(err).Message)
	})

	t.Run("unknown email gives the same error", func(t *testing.T) {
		_, err := h.auth.Login(ctx, LoginRequest{Email: "nobody@b.com", Password: "123456"})
		assertKind(t, err, apperror.KindUnauthorized)
		assert.Equal(t, "Invalid email or password", apperror.From(err).Message)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := h.auth.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "123456", CompanyName: "X", Name: "Z"})
		require.Error(t, err)
		assert.Equal(t, 400, apperror.From(err).StatusCode())
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.auth.Register(ctx, RegisterRequest{Email: "c@d.com", Password: "123456", CompanyName: "X", Name: "Y"})
	require.NoError(t, err)

	_, err = h.auth.ChangePassword(ctx, reg.User.ID, ChangePasswordRequest{CurrentPassword: "bad", NewPassword: "abcdef"})
	require.Error(t, err)

	_, err = h.auth.ChangePassword(ctx, reg.User.ID, ChangePasswordRequest{CurrentPassword: "123456", NewPassword: "abcdef"})
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, LoginRequest{Email: "c@d.com", Password: "123456"})
	assertKind(t, err, apperror.KindUnauthorized)
	_, err = h.auth.Login(ctx, LoginRequest{Email: "c@d.com", Password: "abcdef"})
	assert.NoError(t, err)
}
