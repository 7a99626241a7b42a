// Package tags implements the public tagging endpoints. Each handler
// runs behind the API key middleware; usage is metered only after the
// tagging provider returns successfully.
package tags

import (
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/services/storage"
	"github.com/inferly/content-tags/services/tagging"
	"github.com/inferly/content-tags/utils/validation"
)

// Handler serves the image, text, and document tagging endpoints.
type Handler struct {
	tagger    tagging.Tagger
	meter     *services.Meter
	spaces    *storage.SpacesClient
	extractor *services.PDFExtractor
	validator *validation.Validator
}

// NewHandler creates a tagging handler. spaces may be nil when no blob
// store is configured; inline base64 images are then rejected.
func NewHandler(tagger tagging.Tagger, meter *services.Meter, spaces *storage.SpacesClient) *Handler {
	return &Handler{
		tagger:    tagger,
		meter:     meter,
		spaces:    spaces,
		extractor: services.NewPDFExtractor(),
		validator: validation.NewValidator(),
	}
}

// tagList normalizes a result slice for JSON so clients always see an
// array, never null.
func tagList(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
