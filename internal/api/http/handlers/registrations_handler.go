package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/petcare-identity/internal/api/dto"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/service"
	apperrors "github.com/spec-kit/petcare-identity/pkg/util"
)

// RegistrationsHandler exposes the public registration endpoints.
type RegistrationsHandler struct {
	service *service.RegistrationService
}

// NewRegistrationsHandler constructs handler.
func NewRegistrationsHandler(registrationService *service.RegistrationService) *RegistrationsHandler {
	return &RegistrationsHandler{service: registrationService}
}

// Submit handles POST /registrations/:role with a JSON or multipart body.
func (h *RegistrationsHandler) Submit(c *fiber.Ctx) error {
	role, ok := domain.RoleFromSlug(c.Params("role"))
	if !ok || role == domain.RoleAdmin {
		return apperrors.NewValidationError("unknown registration role", map[string]any{"role": c.Params("role")})
	}

	var (
		req     dto.RegistrationRequest
		uploads []service.DocumentUpload
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		files, err := parseMultipart(c, &req)
		if err != nil {
			return err
		}
		defer func() {
			for _, f := range files {
				_ = f.Close()
			}
		}()
		uploads = make([]service.DocumentUpload, 0, len(files))
		for _, f := range files {
			uploads = append(uploads, f.upload)
		}
	} else if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	profile, err := domain.DecodeProfile(role, req.Profile)
	if err != nil {
		return apperrors.NewValidationError("invalid profile", map[string]any{"reason": err.Error()})
	}

	res, err := h.service.Submit(c.UserContext(), service.RegistrationInput{
		Role:      role,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Contact:   req.Contact.Contact(),
		Profile:   profile,
		Documents: uploads,
	})
	if err != nil {
		return err
	}

	resp := dto.SubmitResponse{ApplicationID: res.Application.ID, Status: res.Application.Status}
	if res.Identity != nil {
		summary := dto.NewIdentitySummary(res.Identity)
		resp.Identity = &summary
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

type openedFile struct {
	upload service.DocumentUpload
	closer io.Closer
}

func (f openedFile) Close() error { return f.closer.Close() }

// parseMultipart reads scalar fields, the JSON-encoded contact and profile
// values, and opens every attached file. The caller closes the files.
func parseMultipart(c *fiber.Ctx, req *dto.RegistrationRequest) ([]openedFile, error) {
	if err := c.BodyParser(req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	if raw := c.FormValue("contact"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Contact); err != nil {
			return nil, apperrors.NewValidationError("contact must be a JSON object", nil)
		}
	}
	if raw := c.FormValue("profile"); raw != "" {
		req.Profile = json.RawMessage(raw)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart form", nil)
	}
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []openedFile
	for _, field := range fields {
		for _, header := range form.File[field] {
			f, err := header.Open()
			if err != nil {
				for _, opened := range files {
					_ = opened.Close()
				}
				return nil, apperrors.NewValidationError("unreadable upload", map[string]any{"field": field})
			}
			files = append(files, openedFile{
				upload: service.DocumentUpload{
					Field:       field,
					Filename:    header.Filename,
					ContentType: header.Header.Get(fiber.HeaderContentType),
					Size:        header.Size,
					Content:     f,
				},
				closer: f,
			})
		}
	}
	return files, nil
}

// Availability handles GET /registrations/availability.
func (h *RegistrationsHandler) Availability(c *fiber.Ctx) error {
	var q dto.AvailabilityQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(&q); err != nil {
		return err
	}
	res, err := h.service.CheckAvailability(c.UserContext(), q.Username, q.Email, q.LicenseNumber)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}
