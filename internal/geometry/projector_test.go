package geometry

import (
	"image"
	"math/rand"
	"testing"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

func TestScale(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		height   int
		maxSide  int
		expected float64
	}{
		{name: "within limit", width: 1200, height: 900, maxSide: 1600, expected: 1},
		{name: "exactly at limit", width: 1600, height: 1200, maxSide: 1600, expected: 1},
		{name: "landscape over limit", width: 3200, height: 2400, maxSide: 1600, expected: 2},
		{name: "portrait over limit", width: 3000, height: 4000, maxSide: 1600, expected: 2.5},
		{name: "zero image", width: 0, height: 0, maxSide: 1600, expected: 1},
		{name: "zero max side", width: 4000, height: 3000, maxSide: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scale(tt.width, tt.height, tt.maxSide)
			if got != tt.expected {
				t.Errorf("Scale(%d, %d, %d) = %v, want %v", tt.width, tt.height, tt.maxSide, got, tt.expected)
			}
		})
	}
}

func TestProjectUnchangedWithinLimit(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		w := 2 + r.Intn(DefaultDetectorMaxSide-1)
		h := 2 + r.Intn(DefaultDetectorMaxSide-1)
		x1 := r.Intn(w - 1)
		y1 := r.Intn(h - 1)
		raw := models.BoundingBox{
			X1: x1,
			Y1: y1,
			X2: x1 + 1 + r.Intn(w-x1),
			Y2: y1 + 1 + r.Intn(h-y1),
		}

		got := Project(raw, w, h, DefaultDetectorMaxSide)
		if got != raw {
			t.Fatalf("Project(%+v, %d, %d) = %+v, want box unchanged", raw, w, h, got)
		}
	}
}

func TestProjectAlwaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		w := 1 + r.Intn(5000)
		h := 1 + r.Intn(5000)
		raw := models.BoundingBox{
			X1: r.Intn(4000) - 1000,
			Y1: r.Intn(4000) - 1000,
			X2: r.Intn(4000) - 1000,
			Y2: r.Intn(4000) - 1000,
		}
		maxSide := 100 + r.Intn(2000)

		got := Project(raw, w, h, maxSide)
		if got.X1 < 0 || got.X1 >= got.X2 || got.X2 > w {
			t.Fatalf("x out of bounds: raw=%+v size=%dx%d max=%d got=%+v", raw, w, h, maxSide, got)
		}
		if got.Y1 < 0 || got.Y1 >= got.Y2 || got.Y2 > h {
			t.Fatalf("y out of bounds: raw=%+v size=%dx%d max=%d got=%+v", raw, w, h, maxSide, got)
		}
		if got.Width() < 1 || got.Height() < 1 {
			t.Fatalf("degenerate box: %+v", got)
		}
	}
}

func TestProjectDownscaledOriginal(t *testing.T) {
	// detector saw a 100x100 copy of a 1000x1000 photo
	raw := models.BoundingBox{X1: 10, Y1: 10, X2: 110, Y2: 210}

	if s := Scale(1000, 1000, 100); s != 10 {
		t.Fatalf("Scale = %v, want 10", s)
	}

	got := Project(raw, 1000, 1000, 100)
	want := models.BoundingBox{X1: 100, Y1: 100, X2: 1000, Y2: 1000}
	if got != want {
		t.Errorf("Project = %+v, want %+v", got, want)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		box      models.BoundingBox
		width    int
		height   int
		expected models.BoundingBox
	}{
		{
			name:     "negative origin keeps extent",
			box:      models.BoundingBox{X1: -20, Y1: -5, X2: 30, Y2: 45},
			width:    100,
			height:   100,
			expected: models.BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50},
		},
		{
			name:     "origin past right edge",
			box:      models.BoundingBox{X1: 150, Y1: 10, X2: 200, Y2: 20},
			width:    100,
			height:   100,
			expected: models.BoundingBox{X1: 99, Y1: 10, X2: 100, Y2: 20},
		},
		{
			name:     "inverted box floors to one pixel",
			box:      models.BoundingBox{X1: 40, Y1: 40, X2: 10, Y2: 10},
			width:    100,
			height:   100,
			expected: models.BoundingBox{X1: 40, Y1: 40, X2: 41, Y2: 41},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.box, tt.width, tt.height)
			if got != tt.expected {
				t.Errorf("Clamp(%+v) = %+v, want %+v", tt.box, got, tt.expected)
			}
		})
	}
}

func TestAspectFit(t *testing.T) {
	tests := []struct {
		name     string
		rect     image.Rectangle
		expected image.Rectangle
	}{
		{name: "too wide", rect: image.Rect(0, 0, 200, 140), expected: image.Rect(50, 0, 150, 140)},
		{name: "too tall", rect: image.Rect(0, 0, 100, 300), expected: image.Rect(0, 80, 100, 220)},
		{name: "already card shaped", rect: image.Rect(10, 10, 60, 80), expected: image.Rect(10, 10, 60, 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CardAspect.Fit(tt.rect)
			if got != tt.expected {
				t.Errorf("Fit(%v) = %v, want %v", tt.rect, got, tt.expected)
			}
		})
	}
}
