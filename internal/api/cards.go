package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// DefaultListLimit matches the page size the card browser requests
const DefaultListLimit = 30

type ListOptions struct {
	Limit int
	Saved bool
}

func (c *Client) GetCard(ctx context.Context, id string) (*models.Card, error) {
	data, err := c.getJSON(ctx, "get card", "/card/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var rec cardRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("get card: %w: failed to decode card: %w", ErrUnavailable, err)
	}
	card := rec.toCard()
	if card.ID == "" {
		card.ID = id
	}
	return &card, nil
}

func (c *Client) ListCards(ctx context.Context, opts ListOptions) ([]models.Card, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if opts.Saved {
		q.Set("saved", "true")
	}

	data, err := c.getJSON(ctx, "list cards", "/cards?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var recs []cardRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("list cards: %w: failed to decode cards: %w", ErrUnavailable, err)
	}
	cards := make([]models.Card, 0, len(recs))
	for _, rec := range recs {
		cards = append(cards, rec.toCard())
	}
	return cards, nil
}

// Filter keeps cards whose name, team or number contains query, ignoring case
func Filter(cards []models.Card, query string) []models.Card {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return cards
	}
	var out []models.Card
	for _, card := range cards {
		for _, v := range []string{card.Name, card.TeamName, card.CardNumber} {
			if strings.Contains(strings.ToLower(v), query) {
				out = append(out, card)
				break
			}
		}
	}
	return out
}

// SetSaved marks or unmarks a card as saved
func (c *Client) SetSaved(ctx context.Context, id string, saved bool) error {
	_, err := c.sendJSON(ctx, "save card", http.MethodPut, "/card/"+url.PathEscape(id)+"/save", map[string]bool{
		"saved": saved,
	})
	return err
}

// PriceCard requests a market estimate for the card identity. It returns
// ErrNoPriceData when the pricing engine has nothing yet.
func (c *Client) PriceCard(ctx context.Context, fields models.CardFields) (*models.PriceEstimate, error) {
	data, err := c.sendJSON(ctx, "price card", http.MethodPost, "/price-card", fields)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || isNoDataMessage(se.Message)) {
			return nil, fmt.Errorf("price card: %w", ErrNoPriceData)
		}
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("price card: %w", ErrNoPriceData)
	}

	var resp priceData
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("price card: %w: failed to decode estimate: %w", ErrUnavailable, err)
	}
	est, ok := resp.toEstimate()
	if !ok {
		return nil, fmt.Errorf("price card: %w", ErrNoPriceData)
	}
	return est, nil
}

// PriceTrend returns the stored valuation history in server order
func (c *Client) PriceTrend(ctx context.Context, id string) ([]models.PricePoint, error) {
	data, err := c.getJSON(ctx, "price trend", "/card/"+url.PathEscape(id)+"/price-trend")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw []trendPoint
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("price trend: %w: failed to decode history: %w", ErrUnavailable, err)
	}
	points := make([]models.PricePoint, 0, len(raw))
	for _, p := range raw {
		points = append(points, models.PricePoint{
			ObservedAt: p.CreatedAt.Time(),
			Estimate:   p.Estimate,
			Low:        p.Low,
			High:       p.High,
		})
	}
	return points, nil
}
