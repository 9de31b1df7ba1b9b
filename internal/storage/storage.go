package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// ErrPartialSlot is returned when a slot write is missing one of its two
// attributes
var ErrPartialSlot = errors.New("slot requires both a display uri and a storage key")

// SlotStore holds the front and back capture state of one session. A slot is
// either empty or has both attributes set.
type SlotStore struct {
	slots map[models.Side]models.Slot
	mu    sync.RWMutex
}

func NewSlotStore() *SlotStore {
	return &SlotStore{
		slots: make(map[models.Side]models.Slot, 2),
	}
}

// SetSlot fills side atomically. It is a no-op, reporting false, when
// displayURI matches what is already stored.
func (s *SlotStore) SetSlot(side models.Side, displayURI, storageKey string) (bool, error) {
	if !side.Valid() {
		return false, fmt.Errorf("invalid side %q", side)
	}
	if displayURI == "" || storageKey == "" {
		return false, ErrPartialSlot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.slots[side]; ok && current.DisplayURI == displayURI {
		return false, nil
	}
	s.slots[side] = models.Slot{DisplayURI: displayURI, StorageKey: storageKey}
	return true, nil
}

func (s *SlotStore) Get(side models.Side) (models.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, exists := s.slots[side]
	return slot, exists
}

// IsComplete is true iff both sides are filled
func (s *SlotStore) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, front := s.slots[models.SideFront]
	_, back := s.slots[models.SideBack]
	return front && back
}

func (s *SlotStore) GetAll() map[models.Side]models.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[models.Side]models.Slot, len(s.slots))
	for k, v := range s.slots {
		result[k] = v
	}
	return result
}

func (s *SlotStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.slots)
}
