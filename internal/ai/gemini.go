package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/inkmath/equation-solver/internal/models"
)

// GeminiProvider calls Google Gemini vision models
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

func (g *GeminiProvider) Name() string  { return models.BackendGemini }
func (g *GeminiProvider) Model() string { return g.model }

// Solve sends the image and prompt in a single request
func (g *GeminiProvider) Solve(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", missingKey(models.BackendGemini, "GEMINI_API_KEY")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", models.WrapFailure(models.RecognitionError, "failed to create gemini client", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	m.SetTemperature(0)

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return "", models.NewFailure(models.RecognitionError, "gemini returned no text")
	}
	return text, nil
}

// firstText concatenates the text parts of the first candidate
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
