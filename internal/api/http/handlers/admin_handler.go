package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/petcare-identity/internal/api/dto"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/repository"
	"github.com/spec-kit/petcare-identity/internal/service"
	apperrors "github.com/spec-kit/petcare-identity/pkg/util"
)

// AdminHandler exposes registration review and identity management.
type AdminHandler struct {
	registrations *service.RegistrationService
	admin         *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(registrations *service.RegistrationService, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{registrations: registrations, admin: admin}
}

// ListRegistrations handles GET /admin/registrations.
func (h *AdminHandler) ListRegistrations(c *fiber.Ctx) error {
	role, err := queryRole(c, "role")
	if err != nil {
		return err
	}
	limit, offset := pageParams(c)
	apps, total, err := h.registrations.List(c.UserContext(), repository.RegistrationFilter{
		Status: domain.RegistrationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Role:   role,
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return listResponse(c, dto.NewApplicationResponses(apps), total, limit, offset)
}

// GetRegistration handles GET /admin/registrations/:id.
func (h *AdminHandler) GetRegistration(c *fiber.Ctx) error {
	app, err := h.registrations.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

// ReviewRegistration handles POST /admin/registrations/:id/review.
func (h *AdminHandler) ReviewRegistration(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	app, err := h.registrations.MarkUnderReview(c.UserContext(), c.Params("id"), principal, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

// ApproveRegistration handles POST /admin/registrations/:id/approve.
func (h *AdminHandler) ApproveRegistration(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	app, identity, err := h.registrations.Approve(c.UserContext(), c.Params("id"), principal, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"application": dto.NewApplicationResponse(app),
		"identity":    dto.NewIdentitySummary(identity),
	}})
}

// RejectRegistration handles POST /admin/registrations/:id/reject.
func (h *AdminHandler) RejectRegistration(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RejectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	app, err := h.registrations.Reject(c.UserContext(), c.Params("id"), principal, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewApplicationResponse(app)})
}

// ListIdentities handles GET /admin/identities.
func (h *AdminHandler) ListIdentities(c *fiber.Ctx) error {
	role, err := queryRole(c, "role")
	if err != nil {
		return err
	}
	limit, offset := pageParams(c)
	identities, total, err := h.admin.ListIdentities(c.UserContext(), service.IdentityQuery{
		Role:   role,
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return listResponse(c, dto.NewIdentityResponses(identities), total, limit, offset)
}

// GetIdentity handles GET /admin/identities/:id.
func (h *AdminHandler) GetIdentity(c *fiber.Ctx) error {
	identity, err := h.admin.GetIdentity(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// SetStatus handles PUT /admin/identities/:id/status.
func (h *AdminHandler) SetStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	id := c.Params("id")
	if _, err := h.admin.SetStatus(c.UserContext(), principal, []string{id}, req.Status); err != nil {
		return err
	}
	identity, err := h.admin.GetIdentity(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// BulkSetStatus handles POST /admin/identities/status.
func (h *AdminHandler) BulkSetStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BulkStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.admin.SetStatus(c.UserContext(), principal, req.IdentityIDs, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated, "status": req.Status}})
}

// SetVerification handles PUT /admin/identities/:id/verification.
func (h *AdminHandler) SetVerification(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.VerificationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.admin.SetVerified(c.UserContext(), principal, c.Params("id"), *req.Verified)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// DeleteIdentity handles DELETE /admin/identities/:id.
func (h *AdminHandler) DeleteIdentity(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteIdentity(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// parseOptionalBody accepts an empty body for endpoints whose payload is optional.
func parseOptionalBody(c *fiber.Ctx, req any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}
