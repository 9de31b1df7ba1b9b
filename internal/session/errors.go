package session

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// Error kinds. Every failure leaving an orchestrator matches exactly one of
// these with errors.Is.
var (
	ErrPermissionDenied      = device.ErrPermissionDenied
	ErrUserCancelled         = device.ErrCancelled
	ErrDetectionUnavailable  = errors.New("card detection unavailable")
	ErrExtractionUnavailable = errors.New("text extraction unavailable")
	ErrMissingSlot           = errors.New("both sides must be captured")
	ErrPersistenceFailure    = errors.New("card could not be saved")
	ErrTransientNetwork      = errors.New("network unavailable")
	ErrCaptureUnavailable    = errors.New("photo could not be taken")
)

var (
	ErrCaptureInProgress    = errors.New("capture already in progress for this side")
	ErrExtractionInProgress = errors.New("card text is already being read")
	ErrFinalizeInProgress   = errors.New("card is already being saved")
	ErrExtractionPending    = errors.New("card text has not been extracted yet")
	ErrStaleExtraction      = errors.New("back image changed while it was being read")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionClosed        = errors.New("session is closed")
)

// Error attaches an operation and, where relevant, a side to one of the
// error kinds
type Error struct {
	Kind error
	Op   string
	Side models.Side
	Err  error
}

func (e *Error) Error() string {
	prefix := e.Op
	if e.Side != "" {
		prefix += " " + string(e.Side)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", prefix, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, side models.Side, err error) *Error {
	return &Error{Kind: kind, Op: op, Side: side, Err: err}
}

// UserMessage returns a plain-language description of err suitable for
// showing to the person scanning the card
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Permission was denied. Allow access and try again."
	case errors.Is(err, ErrUserCancelled):
		return "Cancelled."
	case errors.Is(err, ErrMissingSlot):
		return "Please capture both the front and the back of the card."
	case errors.Is(err, ErrTransientNetwork):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, ErrDetectionUnavailable):
		return "We could not find the card in the photo. You can crop it by hand."
	case errors.Is(err, ErrExtractionUnavailable):
		return "We could not read the card. Please fill in the details yourself."
	case errors.Is(err, ErrPersistenceFailure):
		return "The card could not be saved. Your edits are kept, please try again."
	case errors.Is(err, ErrCaptureUnavailable):
		return "The photo could not be taken. Please try again."
	case errors.Is(err, ErrCaptureInProgress):
		return "A photo of this side is already being processed."
	case errors.Is(err, ErrExtractionInProgress):
		return "The card is already being read."
	case errors.Is(err, ErrFinalizeInProgress):
		return "The card is already being saved."
	case errors.Is(err, ErrStaleExtraction):
		return "The back photo changed while it was being read. Please try again."
	case errors.Is(err, ErrExtractionPending):
		return "Review the card details before saving."
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		return "This scan is no longer active. Start a new card."
	default:
		return "Something went wrong."
	}
}
