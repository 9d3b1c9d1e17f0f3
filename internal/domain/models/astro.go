package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CelestialBody is a single body of the position table.
type CelestialBody struct {
	Name             string
	AbsolutePosition float64 // ecliptic longitude, [0, 360)
	Sign             string  // Ari, Tau, ... Pis
}

// AspectRecord is a named angular relation between two bodies.
type AspectRecord struct {
	BodyA  string  `json:"planet1"`
	BodyB  string  `json:"planet2"`
	Aspect string  `json:"aspect"`
	Angle  float64 `json:"angle"`
}

// ElementSummary holds element percentages over the considered bodies.
type ElementSummary struct {
	Fire  float64 `json:"fire"`
	Earth float64 `json:"earth"`
	Air   float64 `json:"air"`
	Water float64 `json:"water"`
}

// Total returns the sum of all four percentages.
func (s ElementSummary) Total() float64 {
	return s.Fire + s.Earth + s.Air + s.Water
}

// RawChart is the ephemeris output keyed by body or house name.
// Values are kept undecoded so unknown fields pass through untouched.
type RawChart map[string]json.RawMessage

// PlacedBody is a body position plus its degree/minute/second breakdown.
// Fields carries the ephemeris payload for the body as received.
type PlacedBody struct {
	Body    CelestialBody
	Degree  int
	Minutes int
	Seconds int
	Fields  map[string]json.RawMessage
}

// MarshalJSON merges the passthrough fields with the decomposed position.
func (p PlacedBody) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+3)
	for k, v := range p.Fields {
		out[k] = v
	}
	out["degree"] = json.RawMessage(fmt.Sprintf("%d", p.Degree))
	out["minutes"] = json.RawMessage(fmt.Sprintf("%d", p.Minutes))
	out["seconds"] = json.RawMessage(fmt.Sprintf("%d", p.Seconds))
	return json.Marshal(out)
}

// House is a house cusp entry passed through unchanged.
type House struct {
	Name string
	Data json.RawMessage
}

// ChartResult is the assembled chart. It is built per request and never stored.
type ChartResult struct {
	Bodies   []PlacedBody
	Houses   []House
	Elements ElementSummary
	Aspects  []AspectRecord
}

// MarshalJSON writes Planet and Houses as objects keyed in canonical order.
func (r ChartResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"Planet":{`)
	for i, b := range r.Bodies {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, b.Body.Name, b); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"Houses":{`)
	for i, h := range r.Houses {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, h.Name, h.Data); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"Elements":`)
	el, err := json.Marshal(r.Elements)
	if err != nil {
		return nil, err
	}
	buf.Write(el)

	buf.WriteString(`,"Aspects":`)
	aspects := r.Aspects
	if aspects == nil {
		aspects = []AspectRecord{}
	}
	as, err := json.Marshal(aspects)
	if err != nil {
		return nil, err
	}
	buf.Write(as)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// ChartEnvelope is the response shape of the natal chart endpoints.
type ChartEnvelope struct {
	Chart *ChartResult `json:"chart"`
}
