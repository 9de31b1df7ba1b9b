// Package gemini reads card fields from the back image with a Google Gemini
// vision prompt.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/cardscan/internal/imaging"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

// Prompt asks for the same five fields the OCR endpoint returns
const Prompt = `You are reading the back of a sports trading card.

Return a single JSON object with exactly these string keys:
  "name"         the player's full name
  "card_number"  the card number printed on the card
  "card_series"  the set or series name, including the year if shown
  "card_type"    the card type (base, rookie, insert, parallel, autograph...)
  "team_name"    the player's team

Use an empty string for anything you cannot read. Do not add commentary.`

// Extractor implements session.Extractor on top of Gemini
type Extractor struct {
	APIKey      string
	Model       string
	Temperature float32
	// MaxSide bounds the longest side of the image sent to the model
	MaxSide int
}

func New(apiKey, model string) *Extractor {
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{
		APIKey:  apiKey,
		Model:   model,
		MaxSide: 1600,
	}
}

// ExtractText sends the image to Gemini and parses the returned fields
func (e *Extractor) ExtractText(ctx context.Context, imagePath string) (models.CardFields, error) {
	if e.APIKey == "" {
		return models.CardFields{}, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	img, err := imaging.Load(imagePath)
	if err != nil {
		return models.CardFields{}, err
	}
	data, err := imaging.EncodeJPEG(imaging.Normalize(img, e.MaxSide), 85)
	if err != nil {
		return models.CardFields{}, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return models.CardFields{}, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(e.Model)
	model.SetTemperature(e.Temperature)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.ImageData("jpeg", data), genai.Text(Prompt))
	if err != nil {
		return models.CardFields{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return models.CardFields{}, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return models.CardFields{}, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return models.CardFields{}, fmt.Errorf("unexpected response format from Gemini")
	}

	fields, err := ParseFields(string(txt))
	if err != nil {
		return models.CardFields{}, err
	}
	slog.Info("Gemini extracted card fields", "model", e.Model, "name", fields.Name)
	return fields, nil
}

// ParseFields decodes the model's JSON answer, tolerating a markdown code fence
func ParseFields(text string) (models.CardFields, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var fields models.CardFields
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &fields); err != nil {
		return models.CardFields{}, fmt.Errorf("failed to parse fields from Gemini response: %w", err)
	}
	return fields, nil
}
