package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom-service/internal/api/dto"
	"github.com/spec-kit/mailroom-service/internal/auth"
	"github.com/spec-kit/mailroom-service/internal/service"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// AuthHandler exposes registration, login and the permission matrix.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, expiresAt, err := h.auth.Register(c.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.UserType,
		FullName: req.FullName,
		LNumber:  req.LNumber,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, expiresAt, err := h.auth.Login(c.Context(), req.Email, req.Password, req.UserType)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	})
}

// Permissions handles GET /api/auth/permissions.
func (h *AuthHandler) Permissions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(auth.PermissionsFor(principal.Role))
}
