package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

const maxUploadBytes = 32 << 20

func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Start()
	slog.Info("Session started", "session_id", sess.ID)
	h.writeJSONStatus(w, http.StatusCreated, sess.Snapshot())
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) HandleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Cancel(id); err != nil {
		h.writeSessionError(w, err)
		return
	}
	slog.Info("Session cancelled", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type captureResponse struct {
	*session.CaptureResult
	Message string           `json:"message,omitempty"`
	Session session.Snapshot `json:"session"`
}

func newCaptureResponse(sess *session.Session, result *session.CaptureResult) captureResponse {
	resp := captureResponse{CaptureResult: result, Session: sess.Snapshot()}
	if result != nil && result.Cause != nil {
		resp.Message = session.UserMessage(result.Cause)
	}
	return resp
}

// HandleCapture accepts the photo of one side as the multipart "file" part
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	side, err := models.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	path, err := h.saveUpload(w, r)
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.capture.Capture(r.Context(), sess, side, device.FileCamera{Path: path})
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeJSON(w, newCaptureResponse(sess, result))
}

func (h *Handler) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", header.Filename, "path", path)
	return path, nil
}

// HandleCrop re-crops a captured side to the posted rectangle
func (h *Handler) HandleCrop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	side, err := models.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var box models.BoundingBox
	if err := json.NewDecoder(r.Body).Decode(&box); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if box.Width() <= 0 || box.Height() <= 0 {
		h.writeError(w, "Crop rectangle must have a positive width and height", http.StatusBadRequest)
		return
	}

	editor := device.RectEditor{Rect: image.Rect(box.X1, box.Y1, box.X2, box.Y2), Cropper: h.cropper}
	result, err := h.capture.ManualCrop(r.Context(), sess, side, editor)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeJSON(w, newCaptureResponse(sess, result))
}

type extractResponse struct {
	Fields  models.CardFields `json:"fields"`
	Message string            `json:"message,omitempty"`
}

func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	fields, err := h.extraction.Extract(r.Context(), sess)
	if err != nil && !errors.Is(err, session.ErrExtractionUnavailable) {
		h.writeSessionError(w, err)
		return
	}
	// extraction failures are advisory: the user fills the fields in
	h.writeJSON(w, extractResponse{Fields: fields, Message: session.UserMessage(err)})
}

// HandleUpdateFields merges the posted field values into the session
func (h *Handler) HandleUpdateFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := sess.UpdateFields(updates); err != nil {
		if errors.Is(err, session.ErrSessionClosed) || errors.Is(err, session.ErrFinalizeInProgress) {
			h.writeSessionError(w, err)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, sess.Snapshot())
}

func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	id, err := h.finalization.Finalize(r.Context(), sess)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"card_id":    id,
		"session_id": sess.ID,
		"message":    "Card saved",
	})
}
