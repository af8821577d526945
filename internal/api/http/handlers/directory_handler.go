package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/petcare-identity/internal/api/dto"
	"github.com/spec-kit/petcare-identity/internal/service"
)

// DirectoryHandler serves the role-guarded identity resources.
type DirectoryHandler struct {
	identities *service.IdentityService
	auth       *service.AuthService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(identities *service.IdentityService, authService *service.AuthService) *DirectoryHandler {
	return &DirectoryHandler{identities: identities, auth: authService}
}

// Providers handles GET /api/providers.
func (h *DirectoryHandler) Providers(c *fiber.Ctx) error {
	role, err := queryRole(c, "role")
	if err != nil {
		return err
	}
	limit, offset := pageParams(c)
	identities, total, err := h.identities.ListProviders(c.UserContext(), role, c.Query("search"), limit, offset)
	if err != nil {
		return err
	}
	return listResponse(c, dto.NewProviderPublicResponses(identities), total, limit, offset)
}

// Identity handles GET /api/identities/:identityId.
func (h *DirectoryHandler) Identity(c *fiber.Ctx) error {
	id := c.Params("identityId")
	if principal, err := requirePrincipal(c); err == nil && principal.IdentityID == id {
		identity, err := h.auth.CurrentIdentity(c.UserContext(), principal)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
	}
	identity, err := h.identities.GetProfile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

// PetOwners handles GET /api/pet-owners.
func (h *DirectoryHandler) PetOwners(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	identities, total, err := h.identities.ListPetOwners(c.UserContext(), c.Query("search"), limit, offset)
	if err != nil {
		return err
	}
	return listResponse(c, dto.NewPetOwnerDirectoryResponses(identities), total, limit, offset)
}
