package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mailroom-service/internal/auth"
	"github.com/spec-kit/mailroom-service/internal/config"
	"github.com/spec-kit/mailroom-service/internal/domain"
	"github.com/spec-kit/mailroom-service/internal/repository"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// RegisterInput describes a registration request.
type RegisterInput struct {
	Email    string
	Password string
	Role     domain.Role
	FullName string
	LNumber  string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account. Students must supply an L number; the
// username is derived from the email local part.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" || input.Role == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email, password and userType are required", nil)
	}
	if !input.Role.Valid() {
		return nil, "", time.Time{}, apperrors.NewValidationError(`userType must be either "student" or "worker"`, nil)
	}

	lNumber := strings.TrimSpace(input.LNumber)
	if input.Role == domain.RoleStudent && lNumber == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("L number is required for students", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	if input.Role == domain.RoleStudent {
		if _, err := s.users.GetByLNumber(ctx, lNumber); err == nil {
			return nil, "", time.Time{}, apperrors.NewConflict("L number already registered", nil)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, err
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if input.Role == domain.RoleStudent {
		user.LNumber = &lNumber
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, "", time.Time{}, apperrors.NewConflict("email or L number already registered", nil)
		}
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// Login verifies credentials and the expected role, returning a signed token.
// All credential failures map to the same generic error.
func (s *AuthService) Login(ctx context.Context, email, password string, role domain.Role) (*domain.User, string, time.Time, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" || role == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email, password and userType are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, "", time.Time{}, err
	}
	if user.Role != role {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid user type for this account")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
