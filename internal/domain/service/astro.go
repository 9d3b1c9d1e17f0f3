package service

import (
	"context"
	"encoding/json"
	"errors"

	"AstroPull/internal/domain/models"
)

var (
	// ErrExtractionFailed means the text did not yield a complete, unambiguous birth record.
	ErrExtractionFailed = errors.New("birth data could not be extracted")
	// ErrProviderUnavailable wraps transport failures talking to the ephemeris service.
	ErrProviderUnavailable = errors.New("ephemeris provider unavailable")
	// ErrInvalidBirthData means the provider rejected the input as unusable.
	ErrInvalidBirthData = errors.New("invalid birth data")
	// ErrExtractorUnavailable wraps failures reaching the language model or its lookup tables.
	ErrExtractorUnavailable = errors.New("birth data extractor unavailable")
)

// EphemerisProvider computes raw charts and derived artifacts for birth data.
type EphemerisProvider interface {
	Subject(ctx context.Context, d models.BirthData) (models.RawChart, error)
	ChartSVG(ctx context.Context, d models.BirthData) ([]byte, error)
	Report(ctx context.Context, d models.BirthData) (string, error)
	Synastry(ctx context.Context, a, b models.BirthData) (json.RawMessage, error)
	RelationshipScore(ctx context.Context, a, b models.BirthData) (json.RawMessage, error)
	Composite(ctx context.Context, a, b models.BirthData) (json.RawMessage, error)
	Health(ctx context.Context) error
}

// FieldExtractor turns free text into structured birth data.
type FieldExtractor interface {
	Extract(ctx context.Context, text string) (*models.BirthData, error)
}
