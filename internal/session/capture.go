package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscan/internal/api"
	"github.com/lehigh-university-libraries/cardscan/internal/crop"
	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/geometry"
	"github.com/lehigh-university-libraries/cardscan/internal/imaging"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// CaptureState is a step of the per-side capture state machine
type CaptureState string

const (
	StateIdle                 CaptureState = "idle"
	StateRequestingPermission CaptureState = "requesting_permission"
	StateCapturing            CaptureState = "capturing"
	StateUploading            CaptureState = "uploading"
	StateDetecting            CaptureState = "detecting"
	StateCropped              CaptureState = "cropped"
	StateCropFallback         CaptureState = "crop_fallback"
	StatePermissionDenied     CaptureState = "permission_denied"
	StateCancelled            CaptureState = "cancelled"
)

// Detector uploads a photo and locates the card in it
type Detector interface {
	DetectCard(ctx context.Context, imagePath string, side models.Side) (*api.Detection, error)
}

// Observer is told about every state a capture passes through
type Observer func(sessionID string, side models.Side, state CaptureState)

// CaptureResult is where one capture attempt ended
type CaptureResult struct {
	Side  models.Side  `json:"side"`
	State CaptureState `json:"state"`
	// Slot is the committed slot for Cropped and CropFallback, zero otherwise
	Slot    models.Slot         `json:"slot"`
	Changed bool                `json:"changed"`
	Box     *models.BoundingBox `json:"box,omitempty"`
	// Cause explains a CropFallback
	Cause error `json:"-"`
}

type CaptureOrchestrator struct {
	detector Detector
	crop     *crop.Executor
	maxSide  int
	measure  func(path string) (int, int, error)
	observe  Observer
}

func NewCaptureOrchestrator(detector Detector, executor *crop.Executor, detectorMaxSide int) *CaptureOrchestrator {
	if detectorMaxSide <= 0 {
		detectorMaxSide = geometry.DefaultDetectorMaxSide
	}
	return &CaptureOrchestrator{
		detector: detector,
		crop:     executor,
		maxSide:  detectorMaxSide,
		measure:  imaging.Dimensions,
		observe: func(sessionID string, side models.Side, state CaptureState) {
			slog.Debug("Capture state", "session_id", sessionID, "side", side, "state", state)
		},
	}
}

// SetObserver replaces the default debug logging observer
func (o *CaptureOrchestrator) SetObserver(fn Observer) {
	if fn != nil {
		o.observe = fn
	}
}

// Capture takes a photo of side with cam, has it detected and cropped, and
// commits the slot. A cancelled capture returns a Cancelled result and no
// error. Transport failures leave the slot untouched and may be retried.
func (o *CaptureOrchestrator) Capture(ctx context.Context, sess *Session, side models.Side, cam device.Camera) (*CaptureResult, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("failed to capture: invalid side %q", side)
	}
	if err := sess.beginCapture(side); err != nil {
		return nil, newError(err, "capture", side, nil)
	}
	defer sess.endCapture(side)

	result := &CaptureResult{Side: side, State: StateIdle}
	step := func(state CaptureState) {
		result.State = state
		o.observe(sess.ID, side, state)
	}

	step(StateRequestingPermission)
	granted, err := cam.RequestPermission(ctx)
	if err != nil || !granted {
		step(StatePermissionDenied)
		return result, newError(ErrPermissionDenied, "capture", side, err)
	}

	step(StateCapturing)
	photo, err := cam.Capture(ctx)
	switch {
	case errors.Is(err, device.ErrCancelled):
		step(StateCancelled)
		return result, nil
	case err != nil:
		step(StateIdle)
		return result, newError(ErrCaptureUnavailable, "capture", side, err)
	}

	step(StateUploading)
	det, err := o.detector.DetectCard(ctx, photo, side)
	if err != nil {
		if errors.Is(err, api.ErrTransport) || ctx.Err() != nil {
			step(StateIdle)
			return result, newError(ErrTransientNetwork, "detect", side, err)
		}
		result.Cause = newError(ErrDetectionUnavailable, "detect", side, err)
		slog.Warn("Detection failed, keeping original photo", "session_id", sess.ID, "side", side, "err", err)
		return o.commit(sess, result, photo, models.ManualUploadKey, StateCropFallback, step)
	}

	step(StateDetecting)
	display := photo
	if det.Box != nil {
		display = o.autoCrop(ctx, photo, *det.Box, result)
	}
	return o.commit(sess, result, display, det.StorageKey(), StateCropped, step)
}

// autoCrop projects the detector box onto the photo and crops it, falling
// back to the photo itself
func (o *CaptureOrchestrator) autoCrop(ctx context.Context, photo string, raw models.BoundingBox, result *CaptureResult) string {
	w, h, err := o.measure(photo)
	if err != nil {
		slog.Warn("Unable to read photo dimensions, skipping crop", "photo", photo, "err", err)
		return photo
	}
	box := geometry.Project(raw, w, h, o.maxSide)
	result.Box = &box
	return o.crop.AutoCrop(ctx, photo, box)
}

func (o *CaptureOrchestrator) commit(sess *Session, result *CaptureResult, display, key string, terminal CaptureState, step func(CaptureState)) (*CaptureResult, error) {
	changed, err := sess.Slots.SetSlot(result.Side, display, key)
	if err != nil {
		step(StateIdle)
		return result, fmt.Errorf("failed to store %s slot: %w", result.Side, err)
	}
	if changed {
		sess.slotChanged(result.Side)
	}
	result.Slot, _ = sess.Slots.Get(result.Side)
	result.Changed = changed
	step(terminal)

	slog.Info("Side captured", "session_id", sess.ID, "side", result.Side, "state", terminal, "storage_key", result.Slot.StorageKey)
	return result, nil
}

// ManualCrop lets the user re-crop an already captured side. The storage key
// is kept. Editing uses editor when given, otherwise the executor's own.
func (o *CaptureOrchestrator) ManualCrop(ctx context.Context, sess *Session, side models.Side, editor device.Editor) (*CaptureResult, error) {
	if sess.Closed() {
		return nil, newError(ErrSessionClosed, "manual crop", side, nil)
	}
	slot, ok := sess.Slots.Get(side)
	if !ok {
		return nil, newError(ErrMissingSlot, "manual crop", side, nil)
	}
	if err := sess.beginCapture(side); err != nil {
		return nil, newError(err, "manual crop", side, nil)
	}
	defer sess.endCapture(side)

	executor := o.crop
	if editor != nil {
		executor = executor.WithEditor(editor)
	}

	result := &CaptureResult{Side: side, State: StateCropped, Slot: slot}
	if slot.NeedsManualCrop() {
		result.State = StateCropFallback
	}

	edited, err := executor.ManualCrop(ctx, slot.DisplayURI)
	switch {
	case errors.Is(err, device.ErrPermissionDenied):
		return result, newError(ErrPermissionDenied, "manual crop", side, err)
	case errors.Is(err, device.ErrCancelled):
		return result, nil
	case err != nil:
		return result, newError(ErrCaptureUnavailable, "manual crop", side, err)
	}

	return o.commit(sess, result, edited, slot.StorageKey, StateCropped, func(state CaptureState) {
		result.State = state
		o.observe(sess.ID, side, state)
	})
}
