package models

import (
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"
)

// Side identifies one physical face of a card
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// ManualUploadKey is stored instead of a crop key when the detector could not
// locate the card and the raw photo was kept for manual reconciliation
const ManualUploadKey = "manual_upload"

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideFront:
		return SideFront, nil
	case SideBack:
		return SideBack, nil
	default:
		return "", fmt.Errorf("invalid side %q: must be 'front' or 'back'", s)
	}
}

func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// Slot is the committed capture state of one side
type Slot struct {
	DisplayURI string `json:"display_uri" yaml:"display_uri"`
	StorageKey string `json:"storage_key" yaml:"storage_key"`
}

func (s Slot) Filled() bool {
	return s.DisplayURI != "" && s.StorageKey != ""
}

// NeedsManualCrop reports whether the detector fell back to the raw photo
func (s Slot) NeedsManualCrop() bool {
	return s.StorageKey == ManualUploadKey
}

// BoundingBox locates the card inside a photo, in pixels of whatever image
// the coordinates were computed on
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// ParseBox reads "x1,y1,x2,y2"
func ParseBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("invalid box %q: want x1,y1,x2,y2", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return BoundingBox{}, fmt.Errorf("invalid box %q: %w", s, err)
		}
		v[i] = n
	}
	return BoundingBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

// CardFields is the flat, user-editable text record of a card
type CardFields struct {
	Name       string `json:"name" yaml:"name"`
	CardNumber string `json:"card_number" yaml:"card_number"`
	CardSeries string `json:"card_series" yaml:"card_series"`
	CardType   string `json:"card_type" yaml:"card_type"`
	TeamName   string `json:"team_name" yaml:"team_name"`
}

// FieldNames lists the keys accepted by CardFields.Set
var FieldNames = []string{"name", "card_number", "card_series", "card_type", "team_name"}

func (f CardFields) IsEmpty() bool {
	return f == CardFields{}
}

// Set assigns one field by its wire name
func (f *CardFields) Set(key, value string) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "name":
		f.Name = value
	case "card_number", "number":
		f.CardNumber = value
	case "card_series", "series":
		f.CardSeries = value
	case "card_type", "type":
		f.CardType = value
	case "team_name", "team":
		f.TeamName = value
	default:
		return fmt.Errorf("unknown card field %q (valid: %s)", key, strings.Join(FieldNames, ", "))
	}
	return nil
}

// Card is a persisted card record as returned by the card API
type Card struct {
	ID            string    `json:"id" yaml:"id"`
	CardFields    `yaml:",inline"`
	FrontImageKey string    `json:"front_image_key" yaml:"front_image_key"`
	BackImageKey  string    `json:"back_image_key" yaml:"back_image_key"`
	Saved         bool      `json:"saved" yaml:"saved"`
	CreatedAt     time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// PricePoint is one entry of a card's valuation history
type PricePoint struct {
	ObservedAt time.Time `json:"created_at"`
	Estimate   float64   `json:"estimate"`
	Low        float64   `json:"low"`
	High       float64   `json:"high"`
}

// PriceEstimate is a point-in-time market valuation
type PriceEstimate struct {
	Estimate   float64 `json:"estimate" yaml:"estimate"`
	Low        float64 `json:"low" yaml:"low"`
	High       float64 `json:"high" yaml:"high"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	NumSales   int     `json:"num_sales" yaml:"num_sales"`
}
