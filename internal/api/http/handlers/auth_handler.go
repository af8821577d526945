package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/petcare-identity/internal/api/dto"
	"github.com/spec-kit/petcare-identity/internal/service"
	apperrors "github.com/spec-kit/petcare-identity/pkg/util"
)

// AuthHandler exposes login and self-service endpoints.
type AuthHandler struct {
	auth       *service.AuthService
	identities *service.IdentityService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, identities *service.IdentityService) *AuthHandler {
	return &AuthHandler{auth: authService, identities: identities}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.UsernameOrEmail, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(res)})
}

// AdminLogin handles POST /auth/admin-login.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.AdminLogin(c.UserContext(), req.UsernameOrEmail, req.Password, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(res)})
}

// Logout handles POST /auth/logout. Tokens are stateless; the client drops it.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	identity, err := h.auth.CurrentIdentity(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if h.auth.IsOverridePrincipal(principal) {
		return apperrors.NewValidationError("the override account has no stored profile", nil)
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.identities.UpdateContact(c.UserContext(), principal.IdentityID, req.Contact())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if h.auth.IsOverridePrincipal(principal) {
		return apperrors.NewValidationError("the override account password is set by configuration", nil)
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.identities.ChangePassword(c.UserContext(), principal.IdentityID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}

// VerifyToken handles GET /auth/verify-token.
func (h *AuthHandler) VerifyToken(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.VerifyTokenResponse{
		Valid:      true,
		IdentityID: principal.IdentityID,
		Subject:    principal.Subject,
		Role:       principal.Role,
	}})
}

func authResponse(res *service.LoginResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     res.Token.Token,
		TokenType: "Bearer",
		ExpiresAt: res.Token.ExpiresAt,
		Identity:  dto.NewIdentitySummary(res.Identity),
		Override:  res.Override,
	}
}
