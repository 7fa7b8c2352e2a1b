// Package backend builds recognition backends by name.
package backend

import (
	"fmt"

	"github.com/inkmath/equation-solver/internal/ai"
	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/ocr/tesseract"
	"github.com/inkmath/equation-solver/internal/session"
)

// Factory resolves a backend name to a ready backend
type Factory func(name string) (session.Backend, error)

// NewFactory returns a Factory bound to cfg. An empty name selects the
// configured recognition backend.
func NewFactory(cfg *models.Config) Factory {
	return func(name string) (session.Backend, error) {
		return New(cfg, name)
	}
}

// New creates the backend registered under name. Missing credentials are
// not checked here: the first attempt fails with a ConfigError instead.
func New(cfg *models.Config, name string) (session.Backend, error) {
	if name == "" {
		name = cfg.Recognition.Backend
	}
	if name == models.BackendAI {
		name = cfg.AI.DefaultProvider
	}

	switch name {
	case models.BackendOCR:
		return session.Backend{Name: name, Text: tesseract.New(cfg.OCR)}, nil
	case models.BackendGemini, models.BackendOpenAI, models.BackendOllama:
		provider, err := ai.NewProvider(cfg.AI, name, "")
		if err != nil {
			return session.Backend{}, err
		}
		return session.Backend{Name: name, Vision: ai.NewVisionSolver(provider, cfg.AI.Prompt)}, nil
	}
	return session.Backend{}, models.NewFailure(models.ConfigError, fmt.Sprintf("unknown recognition backend %q", name))
}
