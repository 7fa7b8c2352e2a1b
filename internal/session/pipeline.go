package session

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/normalize"
	"github.com/inkmath/equation-solver/internal/ocr"
	"github.com/inkmath/equation-solver/internal/solver"
	"github.com/inkmath/equation-solver/internal/typeset"
)

// Surface is where the bitmap comes from: the drawing canvas or an
// uploaded image
type Surface interface {
	Bitmap() image.Image
	IsEmpty() bool
	Clear()
}

// TextRecognizer reads raw text from a bitmap (local OCR)
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (ocr.Result, error)
}

// VisionSolver reads and solves in one call, returning LaTeX (cloud model)
type VisionSolver interface {
	Name() string
	SolveImage(ctx context.Context, img image.Image) (string, error)
}

// Backend is the recognition stage. Exactly one of Text or Vision is set.
type Backend struct {
	Name   string
	Text   TextRecognizer
	Vision VisionSolver
}

// Pipeline holds the stages an attempt runs through
type Pipeline struct {
	Preprocessor  *ocr.Preprocessor
	Backend       Backend
	Normalizer    *normalize.Normalizer
	Solver        *solver.Solver
	Typesetter    *typeset.Adapter
	Timeout       time.Duration
	MinConfidence float64
}

// NewPipeline builds every stage from config around the given backend
func NewPipeline(cfg *models.Config, backend Backend) (*Pipeline, error) {
	if backend.Text == nil && backend.Vision == nil {
		return nil, models.NewFailure(models.ConfigError, "no recognition backend configured")
	}
	pre, err := ocr.NewPreprocessor(cfg.Preprocess)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Preprocessor: pre,
		Backend:      backend,
		Normalizer: normalize.New(normalize.Policy{
			EquationAware:      cfg.Normalize.EquationAware,
			SplitFunctionNames: cfg.Normalize.SplitFunctionNames,
		}),
		Solver:        solver.New(cfg.Solver),
		Typesetter:    typeset.NewAdapter(nil),
		Timeout:       cfg.Recognition.Timeout(),
		MinConfidence: cfg.Recognition.MinConfidence,
	}, nil
}

// ImageSurface is a surface over an uploaded image. Load replaces the
// image and Clear drops it.
type ImageSurface struct {
	mu  sync.RWMutex
	img image.Image
}

// NewImageSurface wraps img
func NewImageSurface(img image.Image) *ImageSurface {
	return &ImageSurface{img: img}
}

// Load replaces the image
func (s *ImageSurface) Load(img image.Image) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()
}

// Bitmap returns the image
func (s *ImageSurface) Bitmap() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img
}

// Clear forgets the image
func (s *ImageSurface) Clear() { s.Load(nil) }

// IsEmpty reports a missing image, an empty one, or one of a single colour
func (s *ImageSurface) IsEmpty() bool {
	img := s.Bitmap()
	if img == nil || img.Bounds().Empty() {
		return true
	}
	b := img.Bounds()
	r0, g0, b0, a0 := img.At(b.Min.X, b.Min.Y).RGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != r0 || g != g0 || bl != b0 || a != a0 {
				return false
			}
		}
	}
	return true
}
