package astro

import (
	"math"

	"AstroPull/internal/domain/models"
)

// Separation returns the smaller arc between two longitudes, in [0, 180].
func Separation(a, b float64) float64 {
	raw := math.Abs(a - b)
	return math.Min(raw, 360-raw)
}

// FindAspects checks every unordered pair of bodies against the aspect
// table. Pairs are visited i<j in input order and a pair may match more
// than one aspect; all matches are kept. The orb check uses the exact
// separation, the stored angle is rounded to two decimals.
func FindAspects(bodies []models.CelestialBody) []models.AspectRecord {
	out := make([]models.AspectRecord, 0)
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			angle := Separation(bodies[i].AbsolutePosition, bodies[j].AbsolutePosition)
			for _, a := range aspectTable {
				if math.Abs(angle-a.Exact) <= AspectOrb {
					out = append(out, models.AspectRecord{
						BodyA:  bodies[i].Name,
						BodyB:  bodies[j].Name,
						Aspect: a.Name,
						Angle:  round2(angle),
					})
				}
			}
		}
	}
	return out
}
