// Package ai sends a preprocessed drawing to a vision-language model that
// reads and solves the equation in one step.
package ai

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/ocr"
)

var log = logrus.WithField("component", "ai")

// DefaultPrompt asks for the final solution only, as LaTeX
const DefaultPrompt = "Solve the handwritten equation in the image. Provide only the final solution in LaTeX format. " +
	"For example, for '4x^2 + 3 = 1', the output should be 'x = \\pm \\frac{i\\sqrt{2}}{2}'. " +
	"Do not include any explanations or steps."

// Provider is a vision model endpoint. Implementations create their client
// per call and release it before returning.
type Provider interface {
	Name() string
	Model() string
	Solve(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// NewProvider creates the provider registered under name, with modelName
// overriding the configured model when set
func NewProvider(cfg models.AIConfig, name, modelName string) (Provider, error) {
	switch name {
	case models.BackendOpenAI:
		model := modelName
		if model == "" {
			model = cfg.OpenAI.Model
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, model), nil

	case models.BackendGemini:
		model := modelName
		if model == "" {
			model = cfg.Gemini.Model
		}
		return NewGeminiProvider(cfg.Gemini.APIKey, model), nil

	case models.BackendOllama:
		model := modelName
		if model == "" {
			model = cfg.Ollama.Model
		}
		return NewOllamaProvider(cfg.Ollama.BaseURL, model), nil

	default:
		return nil, models.NewFailure(models.ConfigError, fmt.Sprintf("unsupported AI provider: %s", name))
	}
}

// VisionSolver adapts a Provider to bitmaps
type VisionSolver struct {
	provider Provider
	prompt   string
}

// NewVisionSolver wraps provider; an empty prompt uses DefaultPrompt
func NewVisionSolver(provider Provider, prompt string) *VisionSolver {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return &VisionSolver{provider: provider, prompt: prompt}
}

// Name identifies the backend in logs and transcripts
func (v *VisionSolver) Name() string {
	return v.provider.Name() + "/" + v.provider.Model()
}

// SolveImage encodes img and returns the model's cleaned LaTeX solution
func (v *VisionSolver) SolveImage(ctx context.Context, img image.Image) (string, error) {
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return "", err
	}

	startTime := time.Now()
	response, err := v.provider.Solve(ctx, data, "image/png", v.prompt)
	if err != nil {
		return "", err
	}

	solution := CleanSolution(response)
	log.WithFields(logrus.Fields{
		"provider": v.provider.Name(),
		"model":    v.provider.Model(),
		"duration": time.Since(startTime).String(),
		"raw":      response,
	}).Debug("vision model answered")

	if solution == "" {
		return "", models.NewFailure(models.RecognitionError, "empty response from "+v.provider.Name())
	}
	return solution, nil
}

// CleanSolution strips code fences and math delimiters from a model answer
func CleanSolution(response string) string {
	s := StripCodeFences(strings.TrimSpace(response))
	for _, pair := range [][2]string{{`\[`, `\]`}, {`\(`, `\)`}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSuffix(strings.TrimPrefix(s, pair[0]), pair[1])
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "$", ""))
}

// StripCodeFences removes a surrounding ``` block, with or without a
// language tag
func StripCodeFences(s string) string {
	fence := strings.Repeat("`", 3)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], " ") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), fence)
	return strings.TrimSpace(s)
}

// missingKey is returned before any network call when a credential is absent
func missingKey(provider, env string) error {
	return models.NewFailure(models.ConfigError,
		fmt.Sprintf("missing credential: %s API key is not set (configure ai.%s.api_key or %s)", provider, provider, env))
}
