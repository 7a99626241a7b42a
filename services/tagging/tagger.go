// Package tagging wraps the external content-tagging capability. Providers
// are fallible and may legitimately find nothing to tag; callers distinguish
// "no tags" from provider failure instead of probing optional fields.
package tagging

import (
	"context"
	"strings"
)

// Input is one piece of content to tag. Exactly one of ImageURL or Text is
// set; ImageURL may be an https URL or a presigned staging URL.
type Input struct {
	ImageURL string
	Text     string

	// Fingerprint optionally identifies the underlying content for caching.
	// Set by callers that stage content behind short-lived URLs, where the
	// URL itself is not a stable identity.
	Fingerprint string
}

// Result is the outcome of a tagging call that did not fail outright
type Result struct {
	Tags   []string
	NoTags bool // provider saw the content but found nothing taggable
}

// Tagger is the external tagging capability
type Tagger interface {
	// Tag analyzes the content and returns its tags. A nil error with
	// Result.NoTags set means the provider answered but found nothing;
	// a non-nil error is a provider failure.
	Tag(ctx context.Context, input Input) (Result, error)
}

// noTagsSentinel is what providers are instructed to answer when they
// cannot produce tags, instead of inventing some
const noTagsSentinel = "NO_TAGS"

const imagePrompt = `You are a helpful assistant. Your task is to analyze an image and provide tags based on its content.
The tags should be relevant to the image and should not include any personal information or sensitive data.
The tags should be concise and descriptive, ideally 1-2 words long.
If the image is not very detailed, try to provide tags based on the overall theme or subject of the image.
Format the tags as a comma separated list.
If you cannot see the image, do not make anything up. Return 'NO_TAGS'.
If you cannot return tags for any reason, return 'NO_TAGS'.`

const textPrompt = `You are a helpful assistant. Your task is to analyze a piece of text and provide tags based on its content.
The tags should be relevant topics, themes or entities, concise and descriptive, ideally 1-2 words long.
Format the tags as a comma separated list.
If you cannot produce tags for any reason, return 'NO_TAGS'.`

// parseTagList turns a provider's comma separated answer into a Result.
// Empty answers and the NO_TAGS sentinel become NoTags.
func parseTagList(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" || text == noTagsSentinel {
		return Result{NoTags: true}
	}

	parts := strings.Split(text, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" || tag == noTagsSentinel {
			continue
		}
		tags = append(tags, tag)
	}

	if len(tags) == 0 {
		return Result{NoTags: true}
	}
	return Result{Tags: tags}
}
