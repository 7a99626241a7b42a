package tags

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/services/tagging"
	"github.com/inferly/content-tags/utils/middleware"
	"github.com/inferly/content-tags/utils/response"
)

type textRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

// TagText handles POST /v1/text/tags
func (h *Handler) TagText(c *fiber.Ctx) error {
	record, ok := middleware.GetAPIKeyRecord(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "text is required and must be at most 20000 characters")
	}

	result, err := h.tagger.Tag(c.Context(), tagging.Input{Text: req.Text})
	if err != nil {
		logrus.WithError(err).Error("text tagging failed")
		return response.InternalError(c, "Tagging failed. You will not be charged for this request.")
	}

	h.meter.Record(record, "text")

	return response.Success(c, fiber.Map{"tags": tagList(result.Tags)})
}
