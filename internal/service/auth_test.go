package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "team_chat/pkg/errors"
)

func TestAuthLifecycle(t *testing.T) {
	e := newTestEnv(t)
	svc := e.services().Auth
	ctx := context.Background()

	user, err := svc.Register(ctx, " Ann@Example.com ", "password123", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Register(ctx, "ann@example.com", "password123", "Ann")
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)

	_, err = svc.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	login, err := svc.Login(ctx, "ANN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, login.User.ID)

	me, err := svc.ValidateToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	_, err = svc.ValidateToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// старый refresh токен отозван
	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, refreshed.RefreshToken))
	_, err = svc.RefreshToken(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	svc := e.services().Auth

	cases := map[string][3]string{
		"empty email":    {"", "password123", "Ann"},
		"short password": {"ann@example.com", "short", "Ann"},
		"empty name":     {"ann@example.com", "password123", "  "},
		"bad email":      {"ann-at-example", "password123", "Ann"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in[0], in[1], in[2])
			assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
}
