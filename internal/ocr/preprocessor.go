package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/inkmath/equation-solver/internal/models"
)

var log = logrus.WithField("component", "ocr")

// Strategy turns a raw drawing into a recognition-ready bitmap. Strategies
// are pure: the input is never modified and the result never aliases it.
type Strategy interface {
	Name() string
	Preprocess(img image.Image) *image.RGBA
}

// OtsuStrategy binarizes with a global Otsu threshold, then upscales
type OtsuStrategy struct {
	Scale int
}

// Name returns the strategy name
func (OtsuStrategy) Name() string { return models.StrategyOtsu }

// Preprocess binarizes and upscales (x3 by default) onto white
func (s OtsuStrategy) Preprocess(img image.Image) *image.RGBA {
	return upscale(binarize(toNRGBA(img)), scaleOr(s.Scale, 3))
}

// InvertStrategy inverts RGB channels, then upscales
type InvertStrategy struct {
	Scale int
}

// Name returns the strategy name
func (InvertStrategy) Name() string { return models.StrategyInvert }

// Preprocess inverts and upscales (x2 by default) onto white
func (s InvertStrategy) Preprocess(img image.Image) *image.RGBA {
	src := toNRGBA(img)
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255 - src.Pix[i]
		src.Pix[i+1] = 255 - src.Pix[i+1]
		src.Pix[i+2] = 255 - src.Pix[i+2]
	}
	return upscale(src, scaleOr(s.Scale, 2))
}

// NewStrategy returns the strategy registered under name
func NewStrategy(name string, scale int) (Strategy, error) {
	switch name {
	case models.StrategyOtsu:
		return OtsuStrategy{Scale: scale}, nil
	case models.StrategyInvert:
		return InvertStrategy{Scale: scale}, nil
	}
	return nil, models.NewFailure(models.ConfigError, fmt.Sprintf("unknown preprocessing strategy %q", name))
}

func scaleOr(scale, def int) int {
	if scale > 0 {
		return scale
	}
	return def
}

// toNRGBA copies img into a fresh NRGBA image anchored at the origin
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// upscale scales src by factor with Catmull-Rom interpolation, composited
// over a white canvas so transparent areas come out white.
func upscale(src image.Image, factor int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if b.Empty() {
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Preprocessor applies the configured strategy and encodes results for
// the recognition backends
type Preprocessor struct {
	strategy Strategy
}

// NewPreprocessor creates a preprocessor for the configured strategy
func NewPreprocessor(cfg models.PreprocessConfig) (*Preprocessor, error) {
	s, err := NewStrategy(cfg.Strategy, cfg.Scale)
	if err != nil {
		return nil, err
	}
	return &Preprocessor{strategy: s}, nil
}

// Strategy returns the active strategy
func (p *Preprocessor) Strategy() Strategy {
	return p.strategy
}

// Process runs the strategy on a decoded bitmap
func (p *Preprocessor) Process(img image.Image) *image.RGBA {
	out := p.strategy.Preprocess(img)
	log.WithFields(logrus.Fields{
		"strategy": p.strategy.Name(),
		"in":       img.Bounds().Size(),
		"out":      out.Bounds().Size(),
	}).Debug("image preprocessed")
	return out
}

// PreprocessImageFromBytes decodes an uploaded image (honouring EXIF
// orientation), processes it and returns PNG bytes
func (p *Preprocessor) PreprocessImageFromBytes(imageData []byte) ([]byte, error) {
	img, err := DecodeImage(imageData)
	if err != nil {
		return nil, err
	}
	return EncodePNG(p.Process(img))
}

// DecodeImage decodes PNG, JPEG or GIF bytes with EXIF auto-orientation
func DecodeImage(imageData []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, models.WrapFailure(models.InputError, "unsupported image", err)
	}
	return img, nil
}

// EncodePNG encodes a bitmap for the recognition backends
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Result is the raw text produced by an OCR engine
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // mean word confidence, 0-1
}
