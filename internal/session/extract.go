package session

import (
	"context"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// Extractor reads card fields from the back image
type Extractor interface {
	ExtractText(ctx context.Context, imagePath string) (models.CardFields, error)
}

type ExtractionOrchestrator struct {
	extractor Extractor
}

func NewExtractionOrchestrator(extractor Extractor) *ExtractionOrchestrator {
	return &ExtractionOrchestrator{extractor: extractor}
}

// Extract runs once per back image. On failure the session moves on with
// blank fields and the returned ExtractionUnavailable error is advisory only.
// A result for a back image that was replaced meanwhile is dropped.
func (o *ExtractionOrchestrator) Extract(ctx context.Context, sess *Session) (models.CardFields, error) {
	if err := sess.beginExtraction(); err != nil {
		return models.CardFields{}, newError(err, "extract", "", nil)
	}
	defer sess.endExtraction()

	if !sess.Slots.IsComplete() {
		return models.CardFields{}, newError(ErrMissingSlot, "extract", "", nil)
	}
	if sess.Extracted() {
		return sess.Fields(), nil
	}

	back, _ := sess.Slots.Get(models.SideBack)
	fields, err := o.extractor.ExtractText(ctx, back.DisplayURI)
	if err != nil {
		slog.Warn("Text extraction failed, continuing with blank fields", "session_id", sess.ID, "err", err)
		fields = models.CardFields{}
	}
	if !sess.setExtraction(back.DisplayURI, fields) {
		slog.Warn("Back image changed during extraction, result dropped", "session_id", sess.ID, "image", back.DisplayURI)
		return models.CardFields{}, newError(ErrStaleExtraction, "extract", models.SideBack, nil)
	}
	if err != nil {
		return models.CardFields{}, newError(ErrExtractionUnavailable, "extract", models.SideBack, err)
	}

	slog.Info("Card text extracted", "session_id", sess.ID, "name", fields.Name, "team", fields.TeamName)
	return fields, nil
}
