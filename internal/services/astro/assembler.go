package astro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"AstroPull/internal/domain/models"
)

type bodyPosition struct {
	AbsPos *float64 `json:"abs_pos"`
	Sign   string   `json:"sign"`
}

var errNoPosition = errors.New("missing abs_pos")

// Assemble builds a chart from raw ephemeris output. Bodies and houses
// missing from raw, or present as JSON null, are left out. Elements are
// computed over the first ten present bodies in canonical order, aspects
// over all of them. A body payload that is not an object, or has no
// abs_pos, is an error.
func Assemble(raw models.RawChart) (*models.ChartResult, error) {
	res := &models.ChartResult{
		Bodies: make([]models.PlacedBody, 0, len(bodyOrder)),
		Houses: make([]models.House, 0, len(houseOrder)),
	}

	bodies := make([]models.CelestialBody, 0, len(bodyOrder))
	for _, name := range bodyOrder {
		data, ok := present(raw, name)
		if !ok {
			continue
		}
		placed, err := placeBody(name, data)
		if err != nil {
			return nil, err
		}
		res.Bodies = append(res.Bodies, placed)
		bodies = append(bodies, placed.Body)
	}

	for _, name := range houseOrder {
		if data, ok := present(raw, name); ok {
			res.Houses = append(res.Houses, models.House{Name: name, Data: data})
		}
	}

	res.Elements = SummarizeElements(bodies, DefaultElementLimit)
	res.Aspects = FindAspects(bodies)
	return res, nil
}

// present treats JSON null like a missing key; optional points come back null.
func present(raw models.RawChart, key string) (json.RawMessage, bool) {
	data, ok := raw[key]
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	return data, true
}

func placeBody(name string, data json.RawMessage) (models.PlacedBody, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return models.PlacedBody{}, fmt.Errorf("body %s: %w", name, err)
	}
	var pos bodyPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return models.PlacedBody{}, fmt.Errorf("body %s position: %w", name, err)
	}
	if pos.AbsPos == nil {
		return models.PlacedBody{}, fmt.Errorf("body %s: %w", name, errNoPosition)
	}

	abs := *pos.AbsPos
	deg, min, sec := Decompose(abs)
	return models.PlacedBody{
		Body: models.CelestialBody{
			Name:             name,
			AbsolutePosition: abs,
			Sign:             pos.Sign,
		},
		Degree:  deg,
		Minutes: min,
		Seconds: sec,
		Fields:  fields,
	}, nil
}
