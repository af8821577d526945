package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/petcare-identity/internal/api/dto"
	"github.com/spec-kit/petcare-identity/internal/auth"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/repository"
	apperrors "github.com/spec-kit/petcare-identity/pkg/util"
)

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultVal
}

// pageParams reads limit/offset, falling back to page/page_size. The result
// is the effective page the repository will run, so it can be echoed as is.
func pageParams(c *fiber.Ctx) (limit, offset int) {
	limit = parseIntQuery(c, "limit", 0)
	if limit == 0 {
		limit = parseIntQuery(c, "page_size", 0)
	}
	limit, _ = repository.NormalizePage(limit, 0)
	offset = parseIntQuery(c, "offset", -1)
	if offset < 0 {
		page := parseIntQuery(c, "page", 1)
		if page < 1 {
			page = 1
		}
		offset = (page - 1) * limit
	}
	return repository.NormalizePage(limit, offset)
}

func listResponse(c *fiber.Ctx, data any, total, limit, offset int) error {
	return c.JSON(fiber.Map{
		"data":       data,
		"pagination": dto.Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// parseBody decodes and validates the request payload.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

// queryRole accepts either the enum value or its URL slug.
func queryRole(c *fiber.Ctx, key string) (domain.Role, error) {
	raw := c.Query(key)
	if raw == "" {
		return "", nil
	}
	role, ok := domain.RoleFromSlug(raw)
	if !ok {
		return "", apperrors.NewValidationError("unknown role", map[string]any{key: raw})
	}
	return role, nil
}

// requirePrincipal returns the caller; routes guarded by a non-public
// permission always have one.
func requirePrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, domain.ErrAuthenticationRequired
	}
	return principal, nil
}
