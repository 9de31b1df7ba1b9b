// Package ocr selects the backend that reads card fields from the back image.
package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscan/internal/config"
	"github.com/lehigh-university-libraries/cardscan/internal/gemini"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

// Service dispatches extraction to the configured provider
type Service struct {
	provider  string
	extractor session.Extractor
}

// NewService picks the extractor for cfg.Extractor. remote serves the "api"
// provider.
func NewService(cfg config.Config, remote session.Extractor) (*Service, error) {
	var extractor session.Extractor
	switch cfg.Extractor {
	case config.ExtractorAPI, "":
		if remote == nil {
			return nil, fmt.Errorf("api extractor requires a backend client")
		}
		extractor = remote
	case config.ExtractorGemini:
		extractor = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", cfg.Extractor)
	}

	provider := cfg.Extractor
	if provider == "" {
		provider = config.ExtractorAPI
	}
	return &Service{provider: provider, extractor: extractor}, nil
}

func (s *Service) Provider() string {
	return s.provider
}

// ExtractText implements session.Extractor
func (s *Service) ExtractText(ctx context.Context, imagePath string) (models.CardFields, error) {
	slog.Debug("Extracting card text", "provider", s.provider, "image", imagePath)
	fields, err := s.extractor.ExtractText(ctx, imagePath)
	if err != nil {
		return models.CardFields{}, fmt.Errorf("%s extraction failed: %w", s.provider, err)
	}
	return fields, nil
}
