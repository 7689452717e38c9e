package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/raffleworks/raffle-backend/internal/config"
	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*AuthService, *memory.AdminUserRepository) {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiresIn: 3600},
		Admin: config.AdminConfig{
			Email:    "ops@example.com",
			Password: "hunter22",
			Wallet:   testOwner,
		},
	}
	repo := memory.NewAdminUserRepository()
	svc := NewAuthService(repo, cfg)
	require.NoError(t, svc.EnsureDefaultAdmin(context.Background()))
	return svc, repo
}

func TestLoginIssuesTokenWithWallet(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "ops@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, testOwner, resp.Wallet)

	token, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, testOwner, claims["wallet"])
	assert.Equal(t, "ops@example.com", claims["email"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "ops@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter22",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureDefaultAdminIdempotent(t *testing.T) {
	svc, repo := newAuthFixture(t)

	require.NoError(t, svc.EnsureDefaultAdmin(context.Background()))
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
