package canvas

import (
	"image/color"
	"testing"

	"github.com/inkmath/equation-solver/internal/models"
)

func brightness(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r + g + b) / 3 >> 8
}

func TestCanvasStrokes(t *testing.T) {
	c := New(models.CanvasConfig{Width: 100, Height: 60})
	if !c.IsEmpty() {
		t.Fatal("new canvas should be empty")
	}

	c.AddStrokes(
		Stroke{Points: []Point{{10, 30}, {90, 30}}},
		Stroke{}, // ignored
	)
	if c.IsEmpty() || c.StrokeCount() != 1 {
		t.Fatalf("stroke count = %d", c.StrokeCount())
	}

	img := c.Bitmap()
	if got := img.Bounds().Size(); got.X != 100 || got.Y != 60 {
		t.Fatalf("bitmap size = %v", got)
	}
	if b := brightness(img.At(50, 30)); b < 200 {
		t.Errorf("stroke pixel brightness = %d, want white", b)
	}
	if b := brightness(img.At(50, 5)); b != 0 {
		t.Errorf("background pixel brightness = %d, want black", b)
	}

	c.Clear()
	if !c.IsEmpty() {
		t.Fatal("canvas should be empty after Clear")
	}
	if b := brightness(c.Bitmap().At(50, 30)); b != 0 {
		t.Errorf("cleared canvas still shows strokes (brightness %d)", b)
	}
}

func TestCanvasSinglePointStroke(t *testing.T) {
	c := New(models.CanvasConfig{Width: 20, Height: 20, PenWidth: 6})
	c.AddStrokes(Stroke{Points: []Point{{10, 10}}})
	if b := brightness(c.Bitmap().At(10, 10)); b < 200 {
		t.Fatalf("dot brightness = %d, want white", b)
	}
}

func TestGuideLinesOnlyInPreview(t *testing.T) {
	cfg := models.CanvasConfig{Width: 100, Height: 200, ShowGuideLines: true}
	c := New(cfg)

	// (2, 100) lies on the first dash of the centre line
	if b := brightness(c.Preview().At(2, 100)); b == 0 {
		t.Error("preview should show the centre guide line")
	}
	if b := brightness(c.Preview().At(2, 50)); b == 0 {
		t.Error("preview should show the upper guide line")
	}
	if b := brightness(c.Bitmap().At(2, 100)); b != 0 {
		t.Errorf("recognition bitmap must not contain guide lines (brightness %d)", b)
	}

	cfg.ShowGuideLines = false
	if b := brightness(New(cfg).Preview().At(2, 100)); b != 0 {
		t.Errorf("guide lines drawn while disabled (brightness %d)", b)
	}
}

func TestAddStrokesCopiesPoints(t *testing.T) {
	c := New(models.CanvasConfig{Width: 50, Height: 50})
	pts := []Point{{1, 1}, {40, 40}}
	c.AddStrokes(Stroke{Points: pts})
	pts[1] = Point{1, 1}
	if b := brightness(c.Bitmap().At(30, 30)); b < 200 {
		t.Fatalf("stroke changed after caller mutated its slice (brightness %d)", b)
	}
}
