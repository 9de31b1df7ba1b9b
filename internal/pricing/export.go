package pricing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Row is the exported shape of one price point
type Row struct {
	CardID     string  `json:"card_id" parquet:"card_id"`
	ObservedAt int64   `json:"observed_at_ms" parquet:"observed_at_ms"`
	Label      string  `json:"label" parquet:"label"`
	Estimate   float64 `json:"estimate" parquet:"estimate"`
	Low        float64 `json:"low" parquet:"low"`
	High       float64 `json:"high" parquet:"high"`
}

// Rows flattens the newest-first history for export
func (h *History) Rows(cardID string) []Row {
	rows := make([]Row, 0, len(h.Points))
	for _, p := range h.Points {
		rows = append(rows, Row{
			CardID:     cardID,
			ObservedAt: p.ObservedAt.UnixMilli(),
			Label:      ChartLabel(p.ObservedAt),
			Estimate:   p.Estimate,
			Low:        p.Low,
			High:       p.High,
		})
	}
	return rows
}

// Export writes the newest-first history to path. The format follows the
// extension: .parquet, or .jsonl / .ndjson for JSON lines.
func (h *History) Export(path, cardID string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		if err := parquet.WriteFile(path, h.Rows(cardID)); err != nil {
			return fmt.Errorf("failed to write parquet file: %w", err)
		}
	case ".jsonl", ".ndjson":
		if err := h.exportJSONL(path, cardID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format %q: use .parquet or .jsonl", ext)
	}

	slog.Info("Exported price history", "card_id", cardID, "path", path, "rows", len(h.Points))
	return nil
}

func (h *History) exportJSONL(path, cardID string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, row := range h.Rows(cardID) {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write history row: %w", err)
		}
	}
	return f.Close()
}

// ReadParquet loads rows written by Export, mainly for inspection and tests
func ReadParquet(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows, nil
}
