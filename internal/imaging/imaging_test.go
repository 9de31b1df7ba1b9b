package imaging

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestDimensions(t *testing.T) {
	path := writePNG(t, t.TempDir(), 64, 48)

	w, h, err := Dimensions("file://" + path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("Dimensions = %dx%d, want 64x48", w, h)
	}
}

func TestNormalize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))

	small := Normalize(img, 100)
	if got := small.Bounds(); got.Dx() != 100 || got.Dy() != 50 {
		t.Errorf("Normalize bounds = %v, want 100x50", got)
	}

	same := Normalize(img, 1600)
	if same != image.Image(img) {
		t.Errorf("expected image within limit to be returned unchanged")
	}
}

func TestFileCropper(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 80, 60)
	cropper := NewFileCropper(filepath.Join(dir, "crops"))

	out, err := cropper.Crop(context.Background(), src, models.BoundingBox{X1: 10, Y1: 5, X2: 40, Y2: 45})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("reading crop: %v", err)
	}
	if w != 30 || h != 40 {
		t.Errorf("crop size = %dx%d, want 30x40", w, h)
	}
}

func TestFileCropperRejectsOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 20, 20)
	cropper := NewFileCropper(dir)

	if _, err := cropper.Crop(context.Background(), src, models.BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50}); err == nil {
		t.Fatalf("expected error for box outside image")
	}
}
