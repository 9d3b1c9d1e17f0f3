package astro

import "math"

// Decompose splits an absolute position into whole degrees, minutes and
// seconds. Every stage truncates; nothing is rounded.
func Decompose(abs float64) (deg, min, sec int) {
	d := math.Floor(abs)
	m := (abs - d) * 60
	mf := math.Floor(m)
	s := (m - mf) * 60
	return int(d), int(mf), int(math.Floor(s))
}
