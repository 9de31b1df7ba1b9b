package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// Finalizer persists a verified card and returns its id
type Finalizer interface {
	ConfirmCard(ctx context.Context, fields models.CardFields, frontKey, backKey string) (string, error)
}

// Finalized describes a card that was just persisted
type Finalized struct {
	SessionID     string
	CardID        string
	Fields        models.CardFields
	FrontImageKey string
	BackImageKey  string
	FinalizedAt   time.Time
}

// FinalizeHook runs after a card is persisted. Hook errors are logged and
// never undo the finalize.
type FinalizeHook func(ctx context.Context, card Finalized) error

type FinalizationOrchestrator struct {
	finalizer Finalizer
	hooks     []FinalizeHook
}

func NewFinalizationOrchestrator(finalizer Finalizer) *FinalizationOrchestrator {
	return &FinalizationOrchestrator{finalizer: finalizer}
}

func (o *FinalizationOrchestrator) OnFinalized(hook FinalizeHook) {
	o.hooks = append(o.hooks, hook)
}

// Finalize submits the session's fields and both storage keys. Both slots are
// checked before any network call. Only one submit runs per session. On
// failure fields and slots are kept so the user can retry.
func (o *FinalizationOrchestrator) Finalize(ctx context.Context, sess *Session) (string, error) {
	if sess.Closed() {
		return "", newError(ErrSessionClosed, "finalize", "", nil)
	}
	if _, ok := sess.Slots.Get(models.SideFront); !ok {
		return "", newError(ErrMissingSlot, "finalize", models.SideFront, nil)
	}
	if _, ok := sess.Slots.Get(models.SideBack); !ok {
		return "", newError(ErrMissingSlot, "finalize", models.SideBack, nil)
	}

	fields, err := sess.beginFinalize()
	if err != nil {
		return "", newError(err, "finalize", "", nil)
	}
	// slots are frozen while finalizing
	front, _ := sess.Slots.Get(models.SideFront)
	back, _ := sess.Slots.Get(models.SideBack)

	id, err := o.finalizer.ConfirmCard(ctx, fields, front.StorageKey, back.StorageKey)
	if err == nil && id == "" {
		err = errors.New("no card id returned")
	}
	if err != nil {
		sess.abortFinalize()
		slog.Error("Unable to save card", "session_id", sess.ID, "err", err)
		return "", newError(ErrPersistenceFailure, "finalize", "", err)
	}

	sess.finish(id)
	slog.Info("Card saved", "session_id", sess.ID, "card_id", id)

	card := Finalized{
		SessionID:     sess.ID,
		CardID:        id,
		Fields:        fields,
		FrontImageKey: front.StorageKey,
		BackImageKey:  back.StorageKey,
		FinalizedAt:   time.Now(),
	}
	for _, hook := range o.hooks {
		if herr := hook(context.WithoutCancel(ctx), card); herr != nil {
			slog.Warn("Finalize hook failed", "session_id", sess.ID, "card_id", id, "err", herr)
		}
	}
	return id, nil
}
