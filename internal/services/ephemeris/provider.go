package ephemeris

import (
	"context"
	"encoding/json"
	"fmt"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	domsvc "AstroPull/internal/domain/service"
	"AstroPull/pkg/config"
)

// subjectRequest is the wire form of one subject.
type subjectRequest struct {
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	Day          int     `json:"day"`
	Hour         int     `json:"hour"`
	Minute       int     `json:"minute"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	City         string  `json:"city"`
	TZStr        string  `json:"tz_str"`
	HousesSystem string  `json:"houses_system"`
	ZodiacType   string  `json:"zodiac_type"`
}

func newSubjectRequest(d models.BirthData) subjectRequest {
	return subjectRequest{
		Name:         d.Name,
		Year:         d.Year,
		Month:        d.Month,
		Day:          d.Day,
		Hour:         d.Hour,
		Minute:       d.Minute,
		Lat:          d.Lat,
		Lng:          d.Lng,
		City:         d.City,
		TZStr:        d.TZStr,
		HousesSystem: string(domrepo.NormalizeHouseSystem(d.HousesSystem)),
		ZodiacType:   string(domrepo.NormalizeZodiacType(d.ZodiacType)),
	}
}

type pairRequest struct {
	First  subjectRequest `json:"first"`
	Second subjectRequest `json:"second"`
}

// HTTPProvider implements EphemerisProvider against the ephemeris sidecar.
type HTTPProvider struct {
	*HTTPServiceBase
}

// NewHTTPProvider creates the provider from config.
func NewHTTPProvider(cfg *config.Config) *HTTPProvider {
	return &HTTPProvider{HTTPServiceBase: NewHTTPServiceBase(cfg)}
}

var _ domsvc.EphemerisProvider = (*HTTPProvider)(nil)

func (p *HTTPProvider) Subject(ctx context.Context, d models.BirthData) (models.RawChart, error) {
	var raw models.RawChart
	if err := p.PostJSONWithRetry(ctx, "/subject", newSubjectRequest(d), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("subject: empty chart: %w", domsvc.ErrProviderUnavailable)
	}
	return raw, nil
}

func (p *HTTPProvider) ChartSVG(ctx context.Context, d models.BirthData) ([]byte, error) {
	var svg []byte
	if err := p.PostAcceptWithRetry(ctx, "/chart/svg", "image/svg+xml", newSubjectRequest(d), &svg); err != nil {
		return nil, err
	}
	return svg, nil
}

func (p *HTTPProvider) Report(ctx context.Context, d models.BirthData) (string, error) {
	var out struct {
		Report string `json:"report"`
	}
	if err := p.PostJSONWithRetry(ctx, "/report", newSubjectRequest(d), &out); err != nil {
		return "", err
	}
	return out.Report, nil
}

func (p *HTTPProvider) Synastry(ctx context.Context, a, b models.BirthData) (json.RawMessage, error) {
	var out struct {
		Aspects json.RawMessage `json:"aspects"`
	}
	if err := p.PostJSONWithRetry(ctx, "/synastry", newPairRequest(a, b), &out); err != nil {
		return nil, err
	}
	return orEmptyArray(out.Aspects), nil
}

func (p *HTTPProvider) RelationshipScore(ctx context.Context, a, b models.BirthData) (json.RawMessage, error) {
	var out struct {
		Score json.RawMessage `json:"score"`
	}
	if err := p.PostJSONWithRetry(ctx, "/relationship-score", newPairRequest(a, b), &out); err != nil {
		return nil, err
	}
	if len(out.Score) == 0 {
		return json.RawMessage("null"), nil
	}
	return out.Score, nil
}

func (p *HTTPProvider) Composite(ctx context.Context, a, b models.BirthData) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.PostJSONWithRetry(ctx, "/composite", newPairRequest(a, b), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *HTTPProvider) Health(ctx context.Context) error {
	return p.GetJSON(ctx, "/health", nil)
}

func newPairRequest(a, b models.BirthData) pairRequest {
	return pairRequest{First: newSubjectRequest(a), Second: newSubjectRequest(b)}
}

func orEmptyArray(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}
