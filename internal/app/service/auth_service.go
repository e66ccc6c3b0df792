package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"studyhub/internal/common"
	"studyhub/internal/common/security"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const revokedTokenPrefix = "revoked_token:"

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenManager
	rdb      *redis.Client
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenManager, rdb *redis.Client, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, rdb: rdb, log: log, now: time.Now}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User           `json:"user"`
	Token *security.IssuedToken `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var ve common.ValidationErrors
	name := strings.TrimSpace(req.Name)
	email := model.NormalizeIdentity(req.Email)
	photo := strings.TrimSpace(req.PhotoURL)

	if name == "" {
		ve.Add("name", "Name is required.")
	}
	if email == "" {
		ve.Add("email", "Email is required.")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		ve.Add("email", "Please enter a valid email address.")
	}
	if !isStrongPassword(req.Password) {
		ve.Add("password", "Password must be at least 6 characters with uppercase and lowercase letters.")
	}
	if photo != "" && !isAbsoluteURL(photo) {
		ve.Add("photoURL", "Please enter a valid URL.")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:          email,
		Name:           name,
		PhotoURL:       photo,
		HashedPassword: hashedPassword,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user registered", zap.String("email", email))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := model.NormalizeIdentity(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", common.ErrBadRequest)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized) // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

// Logout revokes a token id until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedTokenPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether Logout was called for tokenID.
func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
