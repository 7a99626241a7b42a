// Package keys implements the dashboard key-management endpoints.
// Every route runs behind the session-token middleware; the caller can
// only ever act on their own key.
package keys

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/utils/middleware"
	"github.com/inferly/content-tags/utils/response"
	"github.com/inferly/content-tags/utils/validation"
)

// Handler handles API key management requests
type Handler struct {
	keyService *services.KeyService
	validator  *validation.Validator
}

// NewHandler creates a new key management handler
func NewHandler(keyService *services.KeyService) *Handler {
	return &Handler{
		keyService: keyService,
		validator:  validation.NewValidator(),
	}
}

type provisionRequest struct {
	Tier string `json:"tier" validate:"required"`
}

// keyView is the masked representation returned by read endpoints.
func keyView(key *model.APIKey) fiber.Map {
	return fiber.Map{
		"key":         model.MaskToken(key.Token),
		"tier":        key.Tier,
		"active":      key.Active,
		"total_usage": key.TotalUsage,
		"rate_limit":  key.RateLimit,
		"next_refill": key.NextRefill.Format(time.RFC3339),
		"created_at":  key.CreatedAt.Format(time.RFC3339),
	}
}

// CreateKey handles POST /api/v1/keys
func (h *Handler) CreateKey(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req provisionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	tier := model.Tier(req.Tier)
	if !tier.IsValid() {
		return response.BadRequest(c, "Unknown tier")
	}

	key, err := h.keyService.CreateKey(c.Context(), userID, tier)
	if err != nil {
		if errors.Is(err, services.ErrKeyExists) {
			return response.Error(c, fiber.StatusConflict, response.CodeBadRequest,
				"An API key already exists for this account; regenerate it instead")
		}
		logrus.WithError(err).Error("failed to provision api key")
		return response.InternalError(c, "Failed to create API key")
	}

	// The full token is shown exactly once.
	return response.Created(c, fiber.Map{
		"message": "API key created. Save it securely; it will not be shown again.",
		"api_key": key.Token,
		"tier":    key.Tier,
	})
}

// GetKey handles GET /api/v1/keys
func (h *Handler) GetKey(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	key, err := h.keyService.GetKeyForUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return response.NotFound(c, "No API key provisioned for this account")
		}
		logrus.WithError(err).Error("failed to load api key")
		return response.InternalError(c, "Failed to load API key")
	}

	return response.Success(c, keyView(key))
}

// RegenerateKey handles POST /api/v1/keys/regenerate
func (h *Handler) RegenerateKey(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	key, err := h.keyService.RegenerateKey(c.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return response.NotFound(c, "No API key provisioned for this account")
		}
		logrus.WithError(err).Error("failed to regenerate api key")
		return response.InternalError(c, "Failed to regenerate API key")
	}

	return response.Success(c, fiber.Map{
		"message": "API key regenerated. The previous key no longer works.",
		"api_key": key.Token,
		"tier":    key.Tier,
	})
}

// DeleteKey handles DELETE /api/v1/keys
func (h *Handler) DeleteKey(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if err := h.keyService.DeleteKey(c.Context(), userID); err != nil {
		logrus.WithError(err).Error("failed to delete api key")
		return response.InternalError(c, "Failed to delete API key")
	}

	return response.NoContent(c)
}

// GetUsage handles GET /api/v1/keys/usage
func (h *Handler) GetUsage(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	stats, err := h.keyService.UsageStats(c.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return response.NotFound(c, "No API key provisioned for this account")
		}
		logrus.WithError(err).Error("failed to load usage stats")
		return response.InternalError(c, "Failed to load usage stats")
	}

	return response.Success(c, stats)
}
