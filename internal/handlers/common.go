package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lehigh-university-libraries/cardscan/internal/api"
	"github.com/lehigh-university-libraries/cardscan/internal/imaging"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

type Handler struct {
	sessions     *session.Manager
	capture      *session.CaptureOrchestrator
	extraction   *session.ExtractionOrchestrator
	finalization *session.FinalizationOrchestrator
	cropper      *imaging.FileCropper
	uploadDir    string
}

// Deps are the collaborators the HTTP surface drives
type Deps struct {
	Sessions     *session.Manager
	Capture      *session.CaptureOrchestrator
	Extraction   *session.ExtractionOrchestrator
	Finalization *session.FinalizationOrchestrator
	// Cropper applies rectangles posted to the crop endpoint
	Cropper *imaging.FileCropper
	// UploadDir receives uploaded photos and is served under /uploads/
	UploadDir string
}

func New(deps Deps) *Handler {
	return &Handler{
		sessions:     deps.Sessions,
		capture:      deps.Capture,
		extraction:   deps.Extraction,
		finalization: deps.Finalization,
		cropper:      deps.Cropper,
		uploadDir:    deps.UploadDir,
	}
}

// Routes builds the router for the session API
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStartSession)
		r.Get("/{id}", h.HandleGetSession)
		r.Delete("/{id}", h.HandleCancelSession)
		r.Post("/{id}/capture/{side}", h.HandleCapture)
		r.Post("/{id}/crop/{side}", h.HandleCrop)
		r.Post("/{id}/extract", h.HandleExtract)
		r.Put("/{id}/fields", h.HandleUpdateFields)
		r.Post("/{id}/finalize", h.HandleFinalize)
	})

	r.Get("/uploads/*", h.HandleUploads)
	return r
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	h.writeJSONStatus(w, code, errorResponse{Error: message, Message: message})
}

// writeSessionError maps an orchestrator error to a status code and a user
// facing message
func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	h.writeJSONStatus(w, statusFor(err), errorResponse{Error: err.Error(), Message: session.UserMessage(err)})
	slog.Error("Session request failed", "err", err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrMissingSlot),
		errors.Is(err, session.ErrExtractionPending),
		errors.Is(err, session.ErrCaptureInProgress),
		errors.Is(err, session.ErrExtractionInProgress),
		errors.Is(err, session.ErrFinalizeInProgress),
		errors.Is(err, session.ErrStaleExtraction):
		return http.StatusConflict
	case errors.Is(err, session.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, session.ErrTransientNetwork),
		errors.Is(err, session.ErrPersistenceFailure),
		errors.Is(err, session.ErrDetectionUnavailable),
		errors.Is(err, session.ErrExtractionUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, exists := h.sessions.Get(chi.URLParam(r, "id"))
	if !exists {
		h.writeSessionError(w, session.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}
