package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/inkmath/equation-solver/internal/models"
)

// OpenAIProvider calls OpenAI chat completions with an image part. Ollama
// exposes the same API, so it shares this implementation.
type OpenAIProvider struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	requireKey bool
}

// NewOpenAIProvider creates an OpenAI provider; baseURL may point at any
// compatible endpoint
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	return &OpenAIProvider{
		name:       models.BackendOpenAI,
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimSpace(baseURL),
		model:      model,
		requireKey: true,
	}
}

// NewOllamaProvider creates a provider for a local Ollama server
func NewOllamaProvider(baseURL, model string) *OpenAIProvider {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return &OpenAIProvider{
		name:    models.BackendOllama,
		apiKey:  "ollama",
		baseURL: baseURL,
		model:   model,
	}
}

func (o *OpenAIProvider) Name() string  { return o.name }
func (o *OpenAIProvider) Model() string { return o.model }

// Solve sends the prompt and the image as a data URL
func (o *OpenAIProvider) Solve(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if o.requireKey && o.apiKey == "" {
		return "", missingKey(models.BackendOpenAI, "OPENAI_API_KEY")
	}

	cfg := openai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewFailure(models.RecognitionError, o.name+" returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
