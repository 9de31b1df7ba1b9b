package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	cards := []session.Finalized{
		{SessionID: "s1", CardID: "1", Fields: models.CardFields{Name: "Lou Gehrig"}, FrontImageKey: "f1", BackImageKey: "b1", FinalizedAt: base},
		{SessionID: "s2", CardID: "2", Fields: models.CardFields{Name: "Cy Young", TeamName: "Naps"}, FrontImageKey: "f2", BackImageKey: "b2", FinalizedAt: base.Add(time.Hour)},
		{SessionID: "s3", CardID: "3", Fields: models.CardFields{Name: "Honus Wagner"}, FrontImageKey: "f3", BackImageKey: models.ManualUploadKey, FinalizedAt: base.Add(2 * time.Hour)},
	}
	for _, c := range cards {
		if err := s.Record(t.Context(), c); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := s.Recent(t.Context(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].CardID != "3" || entries[1].CardID != "2" {
		t.Errorf("unexpected order: %s, %s", entries[0].CardID, entries[1].CardID)
	}
	if entries[1].Fields.TeamName != "Naps" || entries[0].BackImageKey != models.ManualUploadKey {
		t.Errorf("unexpected entries %+v", entries)
	}
	if !entries[1].FinalizedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("FinalizedAt = %v", entries[1].FinalizedAt)
	}
}

func TestRecordUpserts(t *testing.T) {
	s := openTestStore(t)
	card := session.Finalized{SessionID: "s1", CardID: "7", Fields: models.CardFields{Name: "old"}, FrontImageKey: "f", BackImageKey: "b", FinalizedAt: time.Now()}
	if err := s.Record(t.Context(), card); err != nil {
		t.Fatalf("Record: %v", err)
	}
	card.Fields.Name = "new"
	if err := s.Record(t.Context(), card); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.Recent(t.Context(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Fields.Name != "new" {
		t.Errorf("unexpected entries %+v", entries)
	}
}
