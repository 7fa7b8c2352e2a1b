// Package tesseract is the local OCR backend built on gosseract.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/ocr"
)

var log = logrus.WithField("component", "tesseract")

// Engine recognizes handwritten expressions with Tesseract
type Engine struct {
	language    string
	whitelist   string
	pageSegMode gosseract.PageSegMode
}

// New creates a Tesseract engine from config
func New(cfg models.OCRConfig) *Engine {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	psm := gosseract.PSM_SINGLE_LINE
	if cfg.PageSegMode > 0 {
		psm = gosseract.PageSegMode(cfg.PageSegMode)
	}
	return &Engine{
		language:    cfg.Language,
		whitelist:   cfg.CharWhitelist,
		pageSegMode: psm,
	}
}

// Recognize runs OCR on a preprocessed bitmap. A client is created for
// each call and closed when the call finishes, even if ctx expires first.
func (t *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	imageBytes, err := ocr.EncodePNG(img)
	if err != nil {
		return ocr.Result{}, err
	}

	type outcome struct {
		res ocr.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.ExtractText(imageBytes)
		done <- outcome{res, err}
	}()

	// gosseract cannot be interrupted; on cancel the goroutine runs on and
	// ExtractText closes the client when it returns.
	select {
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

// ExtractText performs OCR on encoded image bytes
func (t *Engine) ExtractText(imageBytes []byte) (ocr.Result, error) {
	startTime := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return ocr.Result{}, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(t.pageSegMode); err != nil {
		return ocr.Result{}, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if t.whitelist != "" {
		if err := client.SetWhitelist(t.whitelist); err != nil {
			log.WithError(err).Warn("failed to set character whitelist")
		}
	}
	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return ocr.Result{}, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("OCR extraction failed: %w", err)
	}

	confidence := t.meanConfidence(client)
	log.WithFields(logrus.Fields{
		"chars":      len(text),
		"confidence": confidence,
		"duration":   time.Since(startTime).String(),
	}).Debug("tesseract finished")

	return ocr.Result{Text: strings.TrimSpace(text), Confidence: confidence}, nil
}

// meanConfidence averages word confidences (0-100) onto a 0-1 scale
func (t *Engine) meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes)) / 100
}

// Version reports the linked Tesseract version
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
