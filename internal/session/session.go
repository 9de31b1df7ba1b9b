// Package session drives one card from capture through extraction to a
// persisted record.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/storage"
)

type Phase string

const (
	PhaseCapturing  Phase = "capturing"
	PhaseVerifying  Phase = "verifying"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
	PhaseCancelled  Phase = "cancelled"
)

// Session is the in-memory state of one "New Card" flow
type Session struct {
	ID        string
	CreatedAt time.Time
	Slots     *storage.SlotStore

	mu         sync.Mutex
	fields     models.CardFields
	phase      Phase
	extracted  bool
	extracting bool
	cardID     string
	capturing  map[models.Side]bool
}

func New() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Slots:     storage.NewSlotStore(),
		phase:     PhaseCapturing,
		capturing: make(map[models.Side]bool, 2),
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Fields() models.CardFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields
}

// CardID is set once the card has been persisted
func (s *Session) CardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardID
}

func (s *Session) Extracted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extracted
}

// SetFields replaces the editable fields wholesale
func (s *Session) SetFields(fields models.CardFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.fields = fields
	return nil
}

// UpdateField edits a single field by its wire name
func (s *Session) UpdateField(key, value string) error {
	_, err := s.UpdateFields(map[string]string{key: value})
	return err
}

// UpdateFields applies every update or none of them and returns the
// resulting fields
func (s *Session) UpdateFields(updates map[string]string) (models.CardFields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return s.fields, err
	}
	fields := s.fields
	for key, value := range updates {
		if err := fields.Set(key, value); err != nil {
			return s.fields, err
		}
	}
	s.fields = fields
	return fields, nil
}

// editable is called with mu held
func (s *Session) editable() error {
	switch {
	case s.closed():
		return ErrSessionClosed
	case s.phase == PhaseFinalizing:
		return ErrFinalizeInProgress
	}
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed()
}

func (s *Session) closed() bool {
	return s.phase == PhaseDone || s.phase == PhaseCancelled
}

// beginCapture claims side for one capture. The caller must call endCapture
// if it returns nil.
func (s *Session) beginCapture(side models.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.capturing[side] {
		return ErrCaptureInProgress
	}
	s.capturing[side] = true
	return nil
}

func (s *Session) endCapture(side models.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.capturing, side)
}

// slotChanged records a committed slot write. A new back image makes any
// earlier extraction stale.
func (s *Session) slotChanged(side models.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if side == models.SideBack {
		s.extracted = false
	}
	if s.phase == PhaseVerifying && !s.extracted {
		s.phase = PhaseCapturing
	}
}

// beginExtraction claims the session for one extraction. The caller must call
// endExtraction if it returns nil.
func (s *Session) beginExtraction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.extracting {
		return ErrExtractionInProgress
	}
	s.extracting = true
	return nil
}

func (s *Session) endExtraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracting = false
}

// setExtraction stores fields read from backURI. It reports false and keeps
// the session untouched when the back slot no longer shows backURI.
func (s *Session) setExtraction(backURI string, fields models.CardFields) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editable() != nil {
		return false
	}
	if back, ok := s.Slots.Get(models.SideBack); !ok || back.DisplayURI != backURI {
		return false
	}
	s.fields = fields
	s.extracted = true
	s.phase = PhaseVerifying
	return true
}

// beginFinalize moves a verified session to finalizing and returns the fields
// to submit. Only one finalize runs at a time and nothing else may change the
// session until finish or abortFinalize.
func (s *Session) beginFinalize() (models.CardFields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed():
		return models.CardFields{}, ErrSessionClosed
	case s.phase == PhaseFinalizing:
		return models.CardFields{}, ErrFinalizeInProgress
	case len(s.capturing) > 0:
		return models.CardFields{}, ErrCaptureInProgress
	case s.extracting:
		return models.CardFields{}, ErrExtractionInProgress
	case !s.extracted:
		return models.CardFields{}, ErrExtractionPending
	}
	s.phase = PhaseFinalizing
	return s.fields, nil
}

// abortFinalize reopens the session for edits after a failed submit
func (s *Session) abortFinalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinalizing {
		s.phase = PhaseVerifying
	}
}

func (s *Session) finish(cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardID = cardID
	s.phase = PhaseDone
}

func (s *Session) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseDone {
		s.phase = PhaseCancelled
	}
}

// Snapshot is a point-in-time copy of a session for display
type Snapshot struct {
	ID        string            `json:"id" yaml:"id"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Phase     Phase             `json:"phase" yaml:"phase"`
	Front     *models.Slot      `json:"front,omitempty" yaml:"front,omitempty"`
	Back      *models.Slot      `json:"back,omitempty" yaml:"back,omitempty"`
	Complete  bool              `json:"complete" yaml:"complete"`
	Extracted bool              `json:"extracted" yaml:"extracted"`
	Fields    models.CardFields `json:"fields" yaml:"fields"`
	CardID    string            `json:"card_id,omitempty" yaml:"card_id,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Complete:  s.Slots.IsComplete(),
	}
	if slot, ok := s.Slots.Get(models.SideFront); ok {
		snap.Front = &slot
	}
	if slot, ok := s.Slots.Get(models.SideBack); ok {
		snap.Back = &slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Phase = s.phase
	snap.Extracted = s.extracted
	snap.Fields = s.fields
	snap.CardID = s.cardID
	return snap
}
