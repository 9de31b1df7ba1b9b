// Package pricing reads market estimates and valuation history for persisted
// cards.
package pricing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lehigh-university-libraries/cardscan/internal/api"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// Source is the remote pricing engine and card store
type Source interface {
	GetCard(ctx context.Context, id string) (*models.Card, error)
	PriceCard(ctx context.Context, fields models.CardFields) (*models.PriceEstimate, error)
	PriceTrend(ctx context.Context, id string) ([]models.PricePoint, error)
}

type Reader struct {
	source Source
}

func NewReader(source Source) *Reader {
	return &Reader{source: source}
}

// Estimate prices the card with the given id. A nil estimate with a nil
// error means the card has not been priced yet.
func (r *Reader) Estimate(ctx context.Context, cardID string) (*models.PriceEstimate, error) {
	card, err := r.source.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load card %s: %w", cardID, err)
	}

	est, err := r.source.PriceCard(ctx, card.CardFields)
	if errors.Is(err, api.ErrNoPriceData) {
		slog.Info("No pricing data yet", "card_id", cardID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to price card %s: %w", cardID, err)
	}
	return est, nil
}

// ChartPoint is one labelled value of the history chart
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// History holds a card's valuations twice: newest first for listing, and in
// server order for charting
type History struct {
	Points []models.PricePoint `json:"points"`
	Chart  []ChartPoint        `json:"chart"`
}

func (r *Reader) History(ctx context.Context, cardID string) (*History, error) {
	points, err := r.source.PriceTrend(ctx, cardID)
	if errors.Is(err, api.ErrNotFound) || errors.Is(err, api.ErrNoPriceData) {
		return BuildHistory(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load price history for card %s: %w", cardID, err)
	}
	return BuildHistory(points), nil
}

// BuildHistory derives the display list and chart series from points as the
// server returned them
func BuildHistory(points []models.PricePoint) *History {
	h := &History{
		Points: slices.Clone(points),
		Chart:  make([]ChartPoint, 0, len(points)),
	}
	slices.SortStableFunc(h.Points, func(a, b models.PricePoint) int {
		return b.ObservedAt.Compare(a.ObservedAt)
	})
	for _, p := range points {
		h.Chart = append(h.Chart, ChartPoint{Label: ChartLabel(p.ObservedAt), Value: p.Estimate})
	}
	return h
}

// ChartLabel formats t as M/D/YY without zero padding
func ChartLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year()%100)
}

// Range returns the lowest low and highest high across the history
func (h *History) Range() (low, high float64) {
	if len(h.Points) == 0 {
		return 0, 0
	}
	low = slices.MinFunc(h.Points, func(a, b models.PricePoint) int { return cmp.Compare(a.Low, b.Low) }).Low
	high = slices.MaxFunc(h.Points, func(a, b models.PricePoint) int { return cmp.Compare(a.High, b.High) }).High
	return low, high
}
