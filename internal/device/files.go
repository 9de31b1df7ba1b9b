package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/cardscan/internal/geometry"
	"github.com/lehigh-university-libraries/cardscan/internal/imaging"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// FileCamera "captures" an existing image file. An empty Path is treated as
// the user cancelling.
type FileCamera struct {
	Path string
}

func (c FileCamera) RequestPermission(ctx context.Context) (bool, error) {
	if c.Path == "" {
		return true, nil
	}
	f, err := os.Open(imaging.LocalPath(c.Path))
	if errors.Is(err, os.ErrPermission) {
		return false, nil
	}
	if err == nil {
		f.Close()
	}
	return true, nil
}

func (c FileCamera) Capture(ctx context.Context) (string, error) {
	if c.Path == "" {
		return "", ErrCancelled
	}
	if _, err := os.Stat(imaging.LocalPath(c.Path)); err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	return c.Path, nil
}

// TempGallery keeps temporary assets as files under Dir
type TempGallery struct {
	Dir string
}

func (g TempGallery) RequestWritePermission(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return false, nil
		}
		return false, fmt.Errorf("failed to prepare gallery directory: %w", err)
	}
	probe, err := os.CreateTemp(g.Dir, ".probe-*")
	if err != nil {
		return false, nil
	}
	probe.Close()
	os.Remove(probe.Name())
	return true, nil
}

func (g TempGallery) CreateTempAsset(ctx context.Context, uri string) (Asset, error) {
	src, err := os.Open(imaging.LocalPath(uri))
	if err != nil {
		return Asset{}, fmt.Errorf("failed to open source image: %w", err)
	}
	defer src.Close()

	id := uuid.NewString()
	path := filepath.Join(g.Dir, id+filepath.Ext(imaging.LocalPath(uri)))
	dst, err := os.Create(path)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to create temp asset: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return Asset{}, fmt.Errorf("failed to copy temp asset: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return Asset{}, fmt.Errorf("failed to write temp asset: %w", err)
	}
	return Asset{ID: id, URI: path}, nil
}

func (g TempGallery) DeleteAsset(ctx context.Context, asset Asset) error {
	if err := os.Remove(asset.URI); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete temp asset: %w", err)
	}
	return nil
}

// CommandEditor runs an external program as `<command...> <input> <output>`.
// The program signals cancel by exiting 0 without writing output.
type CommandEditor struct {
	Command string
	OutDir  string
}

func (e CommandEditor) Edit(ctx context.Context, uri string, aspect geometry.Aspect) (string, error) {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return "", fmt.Errorf("no editor command configured")
	}
	if err := os.MkdirAll(e.OutDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create editor output directory: %w", err)
	}

	out := filepath.Join(e.OutDir, uuid.NewString()+"_edit"+filepath.Ext(uri))
	args := append(fields[1:], imaging.LocalPath(uri), out)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("CARDSCAN_ASPECT=%d:%d", aspect.W, aspect.H))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	slog.Info("Launching image editor", "command", fields[0], "input", uri)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}

	if _, err := os.Stat(out); errors.Is(err, os.ErrNotExist) {
		return "", ErrCancelled
	}
	return out, nil
}

// RectEditor applies a fixed crop rectangle, fitted to the requested aspect
// ratio, without user interaction
type RectEditor struct {
	Rect    image.Rectangle
	Cropper *imaging.FileCropper
}

func (e RectEditor) Edit(ctx context.Context, uri string, aspect geometry.Aspect) (string, error) {
	if e.Rect.Empty() {
		return "", ErrCancelled
	}
	w, h, err := imaging.Dimensions(uri)
	if err != nil {
		return "", fmt.Errorf("failed to read image size: %w", err)
	}

	rect := aspect.Fit(e.Rect.Intersect(image.Rect(0, 0, w, h)))
	if rect.Empty() {
		return "", fmt.Errorf("crop rectangle %v does not overlap image %dx%d", e.Rect, w, h)
	}
	box := geometry.Clamp(models.BoxFromRect(rect), w, h)
	return e.Cropper.Crop(ctx, uri, box)
}
