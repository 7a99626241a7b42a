package tagging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModel = "gemini-1.5-flash"

	imageFetchTimeout = 10 * time.Second
	maxImageSize      = 5 * 1024 * 1024 // 5 MB
)

// GeminiTagger tags content through Google's Gemini API. Unlike the OpenAI
// provider it takes image bytes, so image URLs are fetched (size capped)
// before the call.
type GeminiTagger struct {
	client *genai.Client
	model  string
	fetch  *http.Client
}

// NewGeminiTagger creates a tagger backed by the Gemini API
func NewGeminiTagger(ctx context.Context, apiKey string) (*GeminiTagger, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiTagger{
		client: client,
		model:  defaultGeminiModel,
		fetch:  &http.Client{Timeout: imageFetchTimeout},
	}, nil
}

// Close releases the underlying client
func (t *GeminiTagger) Close() error {
	return t.client.Close()
}

// Tag implements Tagger
func (t *GeminiTagger) Tag(ctx context.Context, input Input) (Result, error) {
	model := t.client.GenerativeModel(t.model)

	var parts []genai.Part
	if input.ImageURL != "" {
		data, format, err := t.fetchImage(ctx, input.ImageURL)
		if err != nil {
			return Result{}, err
		}
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(imagePrompt)}}
		parts = []genai.Part{
			genai.ImageData(format, data),
			genai.Text("Analyze the image and produce relevant tags."),
		}
	} else {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(textPrompt)}}
		parts = []genai.Part{genai.Text(input.Text)}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{NoTags: true}, nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return parseTagList(sb.String()), nil
}

// fetchImage downloads the image so it can be passed to Gemini inline.
// Returns the bytes and the format hint the SDK expects ("jpeg", "png").
func (t *GeminiTagger) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := t.fetch.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch failed with status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxImageSize {
		return nil, "", fmt.Errorf("image size %d exceeds the %d byte limit", resp.ContentLength, maxImageSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("image exceeds the %d byte limit", maxImageSize)
	}

	format := "jpeg"
	if strings.Contains(resp.Header.Get("Content-Type"), "png") {
		format = "png"
	}
	return data, format, nil
}
