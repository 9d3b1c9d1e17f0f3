package astro

import "AstroPull/internal/domain/models"

// SummarizeElements tallies the elements of the first limit bodies and
// returns each as a percentage of the bodies considered. A sign outside
// the element table counts toward the total only. No bodies yields zeros.
func SummarizeElements(bodies []models.CelestialBody, limit int) models.ElementSummary {
	if limit <= 0 {
		limit = DefaultElementLimit
	}
	if len(bodies) > limit {
		bodies = bodies[:limit]
	}
	if len(bodies) == 0 {
		return models.ElementSummary{}
	}

	counts := make(map[string]int, 4)
	for _, b := range bodies {
		if e, ok := ElementOf(b.Sign); ok {
			counts[e]++
		}
	}

	total := float64(len(bodies))
	pct := func(e string) float64 {
		return round2(100 * float64(counts[e]) / total)
	}
	return models.ElementSummary{
		Fire:  pct(Fire),
		Earth: pct(Earth),
		Air:   pct(Air),
		Water: pct(Water),
	}
}
