package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// ID accepts identifiers serialized either as strings or as numbers
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp parses server datetimes with or without a zone. Zoneless values
// are taken as UTC.
type Timestamp time.Time

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", b, err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) Time() time.Time { return time.Time(t) }

type cardRecord struct {
	ID ID `json:"id"`
	models.CardFields
	FrontImageKey string    `json:"front_image_key"`
	BackImageKey  string    `json:"back_image_key"`
	Saved         bool      `json:"saved"`
	CreatedAt     Timestamp `json:"created_at"`
}

func (r cardRecord) toCard() models.Card {
	return models.Card{
		ID:            string(r.ID),
		CardFields:    r.CardFields,
		FrontImageKey: r.FrontImageKey,
		BackImageKey:  r.BackImageKey,
		Saved:         r.Saved,
		CreatedAt:     r.CreatedAt.Time(),
	}
}

type trendPoint struct {
	CreatedAt Timestamp `json:"created_at"`
	Estimate  float64   `json:"estimate"`
	Low       float64   `json:"low"`
	High      float64   `json:"high"`
}

type detectData struct {
	BBox        json.RawMessage `json:"bbox"`
	OriginalKey string          `json:"s3_key_original"`
	CropKey     string          `json:"s3_key_crop"`
	LegacyKey   string          `json:"s3_key"`
}

// parseBox reads a [x1, y1, x2, y2] array. Anything else is treated as no box.
func parseBox(raw json.RawMessage) *models.BoundingBox {
	if len(raw) == 0 {
		return nil
	}
	var coords []float64
	if err := json.Unmarshal(raw, &coords); err != nil || len(coords) != 4 {
		return nil
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil
		}
	}
	box := models.BoundingBox{
		X1: int(math.Round(coords[0])),
		Y1: int(math.Round(coords[1])),
		X2: int(math.Round(coords[2])),
		Y2: int(math.Round(coords[3])),
	}
	if box.X2 <= box.X1 || box.Y2 <= box.Y1 {
		return nil
	}
	return &box
}

type priceData struct {
	Estimate   *float64 `json:"estimate"`
	Low        *float64 `json:"low"`
	PriceLow   *float64 `json:"price_low"`
	High       *float64 `json:"high"`
	PriceHigh  *float64 `json:"price_high"`
	Confidence float64  `json:"confidence"`
	NumSales   *int     `json:"num_sales"`
	SalesCount *int     `json:"sales_count"`
}

func (p priceData) toEstimate() (*models.PriceEstimate, bool) {
	if p.Estimate == nil {
		return nil, false
	}
	est := &models.PriceEstimate{
		Estimate:   *p.Estimate,
		Low:        firstFloat(p.Low, p.PriceLow),
		High:       firstFloat(p.High, p.PriceHigh),
		Confidence: p.Confidence,
	}
	switch {
	case p.NumSales != nil:
		est.NumSales = *p.NumSales
	case p.SalesCount != nil:
		est.NumSales = *p.SalesCount
	}
	return est, true
}

func firstFloat(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

func isNoDataMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "empty") || strings.Contains(msg, "no data") || strings.Contains(msg, "no pric")
}
