package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// Detection is the detector's answer for one uploaded photo
type Detection struct {
	// Box is nil when the detector returned no usable bounding box
	Box         *models.BoundingBox
	OriginalKey string
	CropKey     string
}

// StorageKey is the key of the cropped upload, falling back to the original
func (d Detection) StorageKey() string {
	if d.CropKey != "" {
		return d.CropKey
	}
	return d.OriginalKey
}

// DetectCard uploads a photo of one side and returns the detected card
// location and storage keys
func (c *Client) DetectCard(ctx context.Context, imagePath string, side models.Side) (*Detection, error) {
	data, err := c.upload(ctx, "detect card", "/detect-card", imagePath, map[string]string{
		"image_type": string(side),
	})
	if err != nil {
		return nil, err
	}

	var resp detectData
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("detect card: %w: failed to decode detection: %w", ErrUnavailable, err)
	}

	det := &Detection{
		Box:         parseBox(resp.BBox),
		OriginalKey: resp.OriginalKey,
		CropKey:     resp.CropKey,
	}
	if resp.LegacyKey != "" {
		// single-key responses predate the original/crop split
		if det.OriginalKey == "" {
			det.OriginalKey = resp.LegacyKey
		}
		if det.CropKey == "" {
			det.CropKey = resp.LegacyKey
		}
	}
	if det.StorageKey() == "" {
		return nil, fmt.Errorf("detect card: %w: response carried no storage key", ErrUnavailable)
	}

	slog.Info("Card detected", "side", side, "has_box", det.Box != nil, "crop_key", det.CropKey)
	return det, nil
}

// ExtractText uploads the back image and returns whatever fields the OCR
// service recognized. Missing fields are left blank.
func (c *Client) ExtractText(ctx context.Context, imagePath string) (models.CardFields, error) {
	data, err := c.upload(ctx, "extract text", "/extract-text", imagePath, nil)
	if err != nil {
		return models.CardFields{}, err
	}

	var fields models.CardFields
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &fields); err != nil {
			return models.CardFields{}, fmt.Errorf("extract text: %w: failed to decode fields: %w", ErrUnavailable, err)
		}
	}

	slog.Info("Extracted card text", "name", fields.Name, "empty", fields.IsEmpty())
	return fields, nil
}

type confirmRequest struct {
	models.CardFields
	FrontImageKey string `json:"front_image_key"`
	BackImageKey  string `json:"back_image_key"`
}

// ConfirmCard persists the verified card and returns its identifier
func (c *Client) ConfirmCard(ctx context.Context, fields models.CardFields, frontKey, backKey string) (string, error) {
	data, err := c.sendJSON(ctx, "confirm card", http.MethodPost, "/confirm-card", confirmRequest{
		CardFields:    fields,
		FrontImageKey: frontKey,
		BackImageKey:  backKey,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("confirm card: %w: failed to decode response: %w", ErrUnavailable, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("confirm card: %w: response carried no card id", ErrUnavailable)
	}

	slog.Info("Card confirmed", "card_id", resp.ID)
	return string(resp.ID), nil
}
