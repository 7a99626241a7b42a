package tags

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/services/tagging"
	"github.com/inferly/content-tags/utils/middleware"
	"github.com/inferly/content-tags/utils/response"
)

// maxDocumentBytes caps uploaded PDF size.
const maxDocumentBytes = 20 << 20

// documentTextLimit keeps extracted text inside the provider's context
// window.
const documentTextLimit = 20000

// TagDocument handles POST /v1/document/tags. The uploaded PDF goes
// through text extraction and then the text tagging path.
func (h *Handler) TagDocument(c *fiber.Ctx) error {
	record, ok := middleware.GetAPIKeyRecord(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		return response.BadRequest(c, "A PDF file is required in the 'document' field")
	}
	if fileHeader.Size > maxDocumentBytes {
		return response.BadRequest(c, "Document must be at most 20 MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded document")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxDocumentBytes+1))
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded document")
	}
	if len(content) > maxDocumentBytes {
		return response.BadRequest(c, "Document must be at most 20 MB")
	}

	text, err := h.extractor.ExtractText(content)
	if err != nil {
		logrus.WithError(err).Warn("pdf text extraction failed")
		return response.BadRequest(c, "Could not extract text from the document; it may be scanned or corrupted")
	}
	if len(text) > documentTextLimit {
		text = text[:documentTextLimit]
	}

	result, err := h.tagger.Tag(c.Context(), tagging.Input{
		Text:        text,
		Fingerprint: tagging.Fingerprint(content),
	})
	if err != nil {
		logrus.WithError(err).Error("document tagging failed")
		return response.InternalError(c, "Tagging failed. You will not be charged for this request.")
	}

	h.meter.Record(record, "document")

	return response.Success(c, fiber.Map{
		"tags":     tagList(result.Tags),
		"filename": strings.TrimSpace(fileHeader.Filename),
	})
}
