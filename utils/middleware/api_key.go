package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/utils/response"
)

// APIKeyMiddleware admits tagging requests against the caller's key:
// authentication, quota, and per-key rate limiting in one pass.
type APIKeyMiddleware struct {
	auth *services.Authenticator
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(auth *services.Authenticator) *APIKeyMiddleware {
	return &APIKeyMiddleware{auth: auth}
}

// Authenticate validates the API key and sets the admitted record in context
func (m *APIKeyMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Format: "Bearer tags_..." or the raw key in X-API-Key
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			authHeader = c.Get("X-API-Key")
		}

		if authHeader == "" {
			return response.Unauthorized(c, "API key required")
		}

		apiKey := strings.TrimSpace(authHeader)
		if strings.HasPrefix(apiKey, "Bearer ") {
			apiKey = strings.TrimSpace(strings.TrimPrefix(apiKey, "Bearer "))
		}

		admission := m.auth.Authenticate(c.Context(), apiKey)
		if !admission.Admitted {
			switch admission.Reason {
			case services.ReasonDisabled:
				return response.Disabled(c)
			case services.ReasonRateLimited:
				return response.RateLimited(c)
			case services.ReasonUsageExceeded:
				return response.UsageExceeded(c)
			case services.ReasonInternal:
				return response.InternalError(c, "")
			default:
				return response.Unauthorized(c, "")
			}
		}

		c.Locals("api_key_record", admission.Record)
		c.Locals("user_id", admission.Record.UserID)

		return c.Next()
	}
}

// GetAPIKeyRecord retrieves the admitted key record from context
func GetAPIKeyRecord(c *fiber.Ctx) (*model.APIKey, bool) {
	record, ok := c.Locals("api_key_record").(*model.APIKey)
	return record, ok
}
