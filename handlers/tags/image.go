package tags

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/services/tagging"
	"github.com/inferly/content-tags/utils/middleware"
	"github.com/inferly/content-tags/utils/response"
	"github.com/inferly/content-tags/utils/validation"
)

// maxInlineImageBytes caps decoded base64 payloads.
const maxInlineImageBytes = 5 << 20

// errBadImage marks payload problems the caller caused, as opposed to
// staging failures on our side.
var errBadImage = errors.New("invalid image payload")

type imageRequest struct {
	ImageURL string `json:"image_url" validate:"required"`
}

// TagImage handles POST /v1/image/tags
func (h *Handler) TagImage(c *fiber.Ctx) error {
	record, ok := middleware.GetAPIKeyRecord(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req imageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "image_url is required")
	}

	input := tagging.Input{ImageURL: req.ImageURL}

	if validation.IsDataURL(req.ImageURL) {
		if h.spaces == nil {
			return response.BadRequest(c, "Inline images are not supported; provide an https image_url")
		}
		staged, fingerprint, err := h.stageInlineImage(c, req.ImageURL)
		if err != nil {
			if errors.Is(err, errBadImage) {
				return response.BadRequest(c, err.Error())
			}
			logrus.WithError(err).Error("failed to stage inline image")
			return response.InternalError(c, "Tagging failed. You will not be charged for this request.")
		}
		input.ImageURL = staged
		input.Fingerprint = fingerprint
	} else if !validation.ValidateImageURL(req.ImageURL) {
		return response.BadRequest(c, "image_url must be an https URL or a base64 data URL")
	}

	result, err := h.tagger.Tag(c.Context(), input)
	if err != nil {
		logrus.WithError(err).Error("image tagging failed")
		return response.InternalError(c, "Tagging failed. You will not be charged for this request.")
	}

	h.meter.Record(record, "image")

	return response.Success(c, fiber.Map{"tags": tagList(result.Tags)})
}

// stageInlineImage decodes a base64 data URL, stages the bytes in the
// blob store, and returns a short-lived presigned URL plus a content
// fingerprint so the cache keys on the image itself.
func (h *Handler) stageInlineImage(c *fiber.Ctx, dataURL string) (string, string, error) {
	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		return "", "", fmt.Errorf("%w: malformed data URL", errBadImage)
	}

	meta := dataURL[len("data:"):comma]
	contentType := strings.SplitN(meta, ";", 2)[0]
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		return "", "", fmt.Errorf("%w: unsupported image type, use jpeg, png, or webp", errBadImage)
	}

	decoded, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid base64 payload", errBadImage)
	}
	if len(decoded) == 0 || len(decoded) > maxInlineImageBytes {
		return "", "", fmt.Errorf("%w: payload must be between 1 byte and 5 MB", errBadImage)
	}

	staged, err := h.spaces.StageBytes(c.Context(), decoded, contentType)
	if err != nil {
		return "", "", err
	}

	return staged, tagging.Fingerprint(decoded), nil
}
