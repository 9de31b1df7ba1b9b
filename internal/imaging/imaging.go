package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"golang.org/x/image/draw"
)

// DefaultQuality is the JPEG quality used when re-encoding crops
const DefaultQuality = 85

// LocalPath strips a file:// scheme so display URIs can be opened directly
func LocalPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// Dimensions reads only the image header
func Dimensions(path string) (int, int, error) {
	file, err := os.Open(LocalPath(path))
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}

	return cfg.Width, cfg.Height, nil
}

func Load(path string) (image.Image, error) {
	file, err := os.Open(LocalPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Normalize downscales img so its longest side does not exceed maxSide.
// Images already within the limit are returned unchanged.
func Normalize(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	long := max(b.Dx(), b.Dy())
	if maxSide <= 0 || long <= maxSide {
		return img
	}

	w := max(b.Dx()*maxSide/long, 1)
	h := max(b.Dy()*maxSide/long, 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Crop copies rect out of img into a new image anchored at the origin
func Crop(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FileCropper crops image files on disk and writes compressed JPEG results
// into Dir
type FileCropper struct {
	Dir     string
	Quality int
}

func NewFileCropper(dir string) *FileCropper {
	return &FileCropper{Dir: dir, Quality: DefaultQuality}
}

// Crop writes the box region of src to a new file and returns its path
func (c *FileCropper) Crop(ctx context.Context, src string, box models.BoundingBox) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := Load(src)
	if err != nil {
		return "", err
	}

	rect := box.Rect()
	if !rect.In(img.Bounds()) {
		return "", fmt.Errorf("crop box %v outside image bounds %v", rect, img.Bounds())
	}

	quality := c.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	data, err := EncodeJPEG(Crop(img, rect), quality)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crop directory: %w", err)
	}
	out := filepath.Join(c.Dir, uuid.NewString()+"_crop.jpg")
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write crop: %w", err)
	}

	slog.Debug("Cropped image", "src", src, "dst", out, "box", rect.String(), "bytes", len(data))
	return out, nil
}
