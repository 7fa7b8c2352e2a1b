// Package canvas is the drawing surface: it collects pen strokes and
// rasterizes them white-on-black, the way the drawing pad shows them.
package canvas

import (
	"image"
	"sync"

	"github.com/fogleman/gg"

	"github.com/inkmath/equation-solver/internal/models"
)

// Point is a pen position in canvas pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen movement
type Stroke struct {
	Points []Point `json:"points"`
}

// Canvas accumulates strokes. It is safe for concurrent use.
type Canvas struct {
	cfg models.CanvasConfig

	mu      sync.RWMutex
	strokes []Stroke
}

// New creates an empty canvas
func New(cfg models.CanvasConfig) *Canvas {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 400
	}
	if cfg.PenWidth <= 0 {
		cfg.PenWidth = 3.5
	}
	if cfg.GuideSpacing <= 0 {
		cfg.GuideSpacing = 50
	}
	return &Canvas{cfg: cfg}
}

// Size returns the canvas dimensions
func (c *Canvas) Size() (int, int) {
	return c.cfg.Width, c.cfg.Height
}

// AddStrokes appends strokes; strokes without points are ignored
func (c *Canvas) AddStrokes(strokes ...Stroke) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range strokes {
		if len(s.Points) == 0 {
			continue
		}
		pts := make([]Point, len(s.Points))
		copy(pts, s.Points)
		c.strokes = append(c.strokes, Stroke{Points: pts})
	}
}

// StrokeCount returns the number of strokes drawn
func (c *Canvas) StrokeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.strokes)
}

// IsEmpty reports whether nothing has been drawn
func (c *Canvas) IsEmpty() bool {
	return c.StrokeCount() == 0
}

// Clear removes every stroke
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.strokes = nil
	c.mu.Unlock()
}

// Bitmap rasterizes the strokes, white pen on black, without guide lines
func (c *Canvas) Bitmap() image.Image {
	dc := c.render()
	return dc.Image()
}

// Preview is Bitmap plus guide lines when enabled
func (c *Canvas) Preview() image.Image {
	dc := gg.NewContext(c.cfg.Width, c.cfg.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	if c.cfg.ShowGuideLines {
		c.drawGuides(dc)
	}
	c.drawStrokes(dc)
	return dc.Image()
}

func (c *Canvas) render() *gg.Context {
	dc := gg.NewContext(c.cfg.Width, c.cfg.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	c.drawStrokes(dc)
	return dc
}

func (c *Canvas) drawStrokes(dc *gg.Context) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(c.cfg.PenWidth)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, s := range c.strokes {
		if len(s.Points) == 1 {
			dc.DrawPoint(s.Points[0].X, s.Points[0].Y, c.cfg.PenWidth/2)
			dc.Fill()
			continue
		}
		dc.MoveTo(s.Points[0].X, s.Points[0].Y)
		for _, p := range s.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()
	}
}

// drawGuides draws a dashed centre line and one line spacing above and below
func (c *Canvas) drawGuides(dc *gg.Context) {
	mid := float64(c.cfg.Height) / 2
	w := float64(c.cfg.Width)

	dc.Push()
	defer dc.Pop()
	dc.SetRGBA(1, 1, 1, 0.1)
	dc.SetLineWidth(1)
	dc.SetDash(5, 5)
	for _, y := range []float64{mid, mid - c.cfg.GuideSpacing, mid + c.cfg.GuideSpacing} {
		dc.DrawLine(0, y, w, y)
		dc.Stroke()
	}
}
