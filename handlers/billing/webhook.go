// Package billing receives subscription lifecycle events from the
// billing provider and keeps keys in sync with plan state.
package billing

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/utils/response"
)

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Billing-Secret"

// Handler processes billing webhook events
type Handler struct {
	keyService *services.KeyService
	secret     string
}

// NewHandler creates a new billing webhook handler
func NewHandler(keyService *services.KeyService, secret string) *Handler {
	return &Handler{keyService: keyService, secret: secret}
}

type event struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

// HandleEvent handles POST /api/v1/billing/events. Events are
// idempotent; replaying one converges to the same key state.
func (h *Handler) HandleEvent(c *fiber.Ctx) error {
	provided := c.Get(SecretHeader)
	if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return response.Unauthorized(c, "Invalid webhook secret")
	}

	var ev event
	if err := c.BodyParser(&ev); err != nil {
		return response.BadRequest(c, "Invalid event payload")
	}
	if ev.UserID == "" {
		return response.BadRequest(c, "user_id is required")
	}

	log := logrus.WithFields(logrus.Fields{
		"event":   ev.Type,
		"user_id": ev.UserID,
	})

	switch ev.Type {
	case "checkout.completed":
		if err := h.checkoutCompleted(c, ev); err != nil {
			log.WithError(err).Error("checkout event failed")
			return response.InternalError(c, "Failed to process event")
		}
	case "subscription.updated":
		if err := h.subscriptionUpdated(c, ev); err != nil {
			log.WithError(err).Error("subscription update failed")
			return response.InternalError(c, "Failed to process event")
		}
	case "subscription.canceled":
		// Cancellation pauses the key. The record stays so usage
		// history survives a resubscribe.
		if _, err := h.keyService.PauseKey(c.Context(), ev.UserID); err != nil {
			log.WithError(err).Error("cancellation pause failed")
			return response.InternalError(c, "Failed to process event")
		}
	default:
		log.Debug("ignoring unhandled billing event")
	}

	return response.Success(c, fiber.Map{"received": true})
}

// checkoutCompleted provisions a key for a first-time subscriber, or
// moves an existing key to the purchased tier on resubscribe.
func (h *Handler) checkoutCompleted(c *fiber.Ctx, ev event) error {
	tier := model.Tier(ev.Tier)
	if !tier.IsValid() {
		logrus.Warnf("checkout with unknown tier %q for user %s, defaulting to free", ev.Tier, ev.UserID)
		tier = model.TierFree
	}

	_, err := h.keyService.CreateKey(c.Context(), ev.UserID, tier)
	if errors.Is(err, services.ErrKeyExists) {
		if _, err := h.keyService.UpdateTier(c.Context(), ev.UserID, tier); err != nil {
			return err
		}
		_, err = h.keyService.ResumeKey(c.Context(), ev.UserID)
		return err
	}
	return err
}

// subscriptionUpdated applies tier changes and pauses or resumes the
// key based on payment status.
func (h *Handler) subscriptionUpdated(c *fiber.Ctx, ev event) error {
	if ev.Tier != "" {
		tier := model.Tier(ev.Tier)
		if !tier.IsValid() {
			return nil
		}
		found, err := h.keyService.UpdateTier(c.Context(), ev.UserID, tier)
		if err != nil && !errors.Is(err, database.ErrKeyNotFound) {
			return err
		}
		if !found {
			// Subscriber without a provisioned key. Nothing to sync.
			return nil
		}
	}

	switch ev.Status {
	case "past_due", "unpaid":
		_, err := h.keyService.PauseKey(c.Context(), ev.UserID)
		return err
	case "active":
		_, err := h.keyService.ResumeKey(c.Context(), ev.UserID)
		return err
	}
	return nil
}
