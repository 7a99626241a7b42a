package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1/responses"
	defaultOpenAIModel = "gpt-4.1-nano"
	openAITimeout      = 30 * time.Second
)

// OpenAITagger tags content through the OpenAI responses API
type OpenAITagger struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAITagger creates a tagger backed by the OpenAI responses API
func NewOpenAITagger(apiKey string) *OpenAITagger {
	return &OpenAITagger{
		apiKey:  apiKey,
		baseURL: defaultOpenAIURL,
		model:   defaultOpenAIModel,
		client:  &http.Client{Timeout: openAITimeout},
	}
}

// NewOpenAITaggerWithURL creates a tagger against a custom endpoint.
// Used by tests and OpenAI-compatible gateways.
func NewOpenAITaggerWithURL(apiKey, baseURL string) *OpenAITagger {
	t := NewOpenAITagger(apiKey)
	t.baseURL = baseURL
	return t
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type openAIMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

type openAIRequest struct {
	Model string          `json:"model"`
	Input []openAIMessage `json:"input"`
}

type openAIResponse struct {
	Output []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Tag implements Tagger
func (t *OpenAITagger) Tag(ctx context.Context, input Input) (Result, error) {
	request := t.buildRequest(input)

	reqBody, err := json.Marshal(request)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("tagging request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("tagging request failed with status %d: %s", resp.StatusCode, respBody)
	}

	var aiResponse openAIResponse
	if err := json.Unmarshal(respBody, &aiResponse); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	if len(aiResponse.Output) == 0 || len(aiResponse.Output[0].Content) == 0 {
		return Result{NoTags: true}, nil
	}

	return parseTagList(aiResponse.Output[0].Content[0].Text), nil
}

func (t *OpenAITagger) buildRequest(input Input) openAIRequest {
	if input.ImageURL != "" {
		return openAIRequest{
			Model: t.model,
			Input: []openAIMessage{
				{
					Role: "system",
					Content: []interface{}{
						openAITextContent{Type: "input_text", Text: imagePrompt},
					},
				},
				{
					Role: "user",
					Content: []interface{}{
						openAIImageContent{Type: "input_image", ImageURL: input.ImageURL},
						openAITextContent{Type: "input_text", Text: "Analyze the image and produce relevant tags."},
					},
				},
			},
		}
	}

	return openAIRequest{
		Model: t.model,
		Input: []openAIMessage{
			{
				Role: "system",
				Content: []interface{}{
					openAITextContent{Type: "input_text", Text: textPrompt},
				},
			},
			{
				Role: "user",
				Content: []interface{}{
					openAITextContent{Type: "input_text", Text: input.Text},
				},
			},
		},
	}
}
