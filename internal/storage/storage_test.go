package storage

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

func TestSetSlot(t *testing.T) {
	s := NewSlotStore()

	changed, err := s.SetSlot(models.SideFront, "front.jpg", "key-front")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Errorf("expected first write to report a change")
	}

	slot, ok := s.Get(models.SideFront)
	if !ok {
		t.Fatalf("expected front slot to exist")
	}
	if slot.DisplayURI != "front.jpg" || slot.StorageKey != "key-front" {
		t.Errorf("unexpected slot: %+v", slot)
	}
}

func TestSetSlotIdempotent(t *testing.T) {
	s := NewSlotStore()
	if _, err := s.SetSlot(models.SideBack, "back.jpg", "key-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := s.GetAll()

	changed, err := s.SetSlot(models.SideBack, "back.jpg", "key-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Errorf("expected unchanged display uri to be a no-op")
	}
	if after := s.GetAll(); !reflect.DeepEqual(before, after) {
		t.Errorf("state changed: before=%v after=%v", before, after)
	}
}

func TestSetSlotRejectsPartial(t *testing.T) {
	tests := []struct {
		name       string
		side       models.Side
		displayURI string
		storageKey string
	}{
		{name: "missing display uri", side: models.SideFront, storageKey: "key"},
		{name: "missing storage key", side: models.SideFront, displayURI: "a.jpg"},
		{name: "invalid side", side: "edge", displayURI: "a.jpg", storageKey: "key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSlotStore()
			if _, err := s.SetSlot(tt.side, tt.displayURI, tt.storageKey); err == nil {
				t.Fatalf("expected error")
			}
			if len(s.GetAll()) != 0 {
				t.Errorf("store should remain empty")
			}
		})
	}

	s := NewSlotStore()
	if _, err := s.SetSlot(models.SideFront, "", "k"); !errors.Is(err, ErrPartialSlot) {
		t.Errorf("error = %v, want ErrPartialSlot", err)
	}
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name     string
		sides    []models.Side
		expected bool
	}{
		{name: "empty", expected: false},
		{name: "front only", sides: []models.Side{models.SideFront}, expected: false},
		{name: "back only", sides: []models.Side{models.SideBack}, expected: false},
		{name: "both", sides: []models.Side{models.SideFront, models.SideBack}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSlotStore()
			for _, side := range tt.sides {
				if _, err := s.SetSlot(side, string(side)+".jpg", "key"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if got := s.IsComplete(); got != tt.expected {
				t.Errorf("IsComplete() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConcurrentSides(t *testing.T) {
	s := NewSlotStore()

	var wg sync.WaitGroup
	for _, side := range []models.Side{models.SideFront, models.SideBack} {
		wg.Add(1)
		go func(side models.Side) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, _ = s.SetSlot(side, string(side)+".jpg", "key")
			}
		}(side)
	}
	wg.Wait()

	if !s.IsComplete() {
		t.Errorf("expected both sides to be filled")
	}

	s.Reset()
	if s.IsComplete() || len(s.GetAll()) != 0 {
		t.Errorf("expected empty store after reset")
	}
}
