package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/raffleworks/raffle-backend/internal/config"
	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, so login failures don't reveal which half was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues JWTs for operator accounts.
type AuthService struct {
	adminRepo repositories.AdminUserRepository
	cfg       *config.Config
}

// NewAuthService creates a new AuthService
func NewAuthService(adminRepo repositories.AdminUserRepository, cfg *config.Config) *AuthService {
	return &AuthService{adminRepo: adminRepo, cfg: cfg}
}

// Login verifies the credentials and returns a signed JWT carrying the
// operator's wallet address, which owner-gated operations check against the
// registry owner.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.adminRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find admin user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"sub":    user.ID.Hex(),
		"email":  user.Email,
		"wallet": user.Wallet,
		"role":   user.Role,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(time.Duration(s.cfg.JWT.ExpiresIn) * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &models.LoginResponse{
		Token:     signed,
		ExpiresIn: s.cfg.JWT.ExpiresIn,
		Wallet:    user.Wallet,
	}, nil
}

// EnsureDefaultAdmin seeds the configured admin account when the collection
// is empty, so a fresh deployment can log in.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) error {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if s.cfg.Admin.Email == "" || s.cfg.Admin.Password == "" {
		slog.Warn("no admin account configured; protected endpoints are unreachable")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.AdminUser{
		Email:    s.cfg.Admin.Email,
		Password: string(hash),
		Wallet:   s.cfg.Admin.Wallet,
		Role:     "admin",
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("default admin account created", "email", admin.Email)
	return nil
}
