package crop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/geometry"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// Cropper is the crop/compress primitive
type Cropper interface {
	Crop(ctx context.Context, src string, box models.BoundingBox) (string, error)
}

// Executor produces cropped image references, automatically from a detector
// box or manually through an external editor
type Executor struct {
	cropper Cropper
	gallery device.Gallery
	editor  device.Editor
	aspect  geometry.Aspect
}

func NewExecutor(cropper Cropper, gallery device.Gallery, editor device.Editor) *Executor {
	return &Executor{
		cropper: cropper,
		gallery: gallery,
		editor:  editor,
		aspect:  geometry.CardAspect,
	}
}

// WithEditor returns a copy of the executor that edits with editor
func (e *Executor) WithEditor(editor device.Editor) *Executor {
	cp := *e
	cp.editor = editor
	return &cp
}

// AutoCrop returns the cropped image, or the original image if cropping
// fails for any reason
func (e *Executor) AutoCrop(ctx context.Context, image string, box models.BoundingBox) string {
	if e.cropper == nil {
		return image
	}
	cropped, err := e.cropper.Crop(ctx, image, box)
	if err != nil || cropped == "" {
		slog.Warn("Auto crop failed, keeping original image", "image", image, "err", err)
		return image
	}
	return cropped
}

// ManualCrop hands image to the editor and returns the edited result. On
// denial, cancel or error the returned reference is image itself. The temp
// asset given to the editor is always deleted.
func (e *Executor) ManualCrop(ctx context.Context, image string) (string, error) {
	if e.gallery == nil || e.editor == nil {
		return image, fmt.Errorf("manual crop is not available")
	}

	granted, err := e.gallery.RequestWritePermission(ctx)
	if err != nil || !granted {
		return image, errors.Join(device.ErrPermissionDenied, err)
	}

	asset, err := e.gallery.CreateTempAsset(ctx, image)
	if err != nil {
		return image, fmt.Errorf("failed to create temp asset: %w", err)
	}
	defer func() {
		if derr := e.gallery.DeleteAsset(context.WithoutCancel(ctx), asset); derr != nil {
			slog.Warn("Unable to delete temp asset", "asset", asset.ID, "err", derr)
		}
	}()

	edited, err := e.editor.Edit(ctx, asset.URI, e.aspect)
	switch {
	case errors.Is(err, device.ErrCancelled):
		return image, err
	case err != nil:
		return image, fmt.Errorf("failed to edit image: %w", err)
	case edited == "":
		return image, device.ErrCancelled
	}

	slog.Info("Manual crop applied", "image", image, "result", edited)
	return edited, nil
}
