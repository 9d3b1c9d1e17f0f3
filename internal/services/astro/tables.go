// Package astro derives aspects, element balance and degree breakdowns
// from an ephemeris position table and assembles them into a chart.
package astro

var bodyOrder = [...]string{
	"sun", "moon", "mercury", "venus", "mars",
	"jupiter", "saturn", "uranus", "neptune", "pluto",
	"true_node", "mean_node", "chiron", "mean_lilith",
	"true_south_node", "mean_south_node",
}

var houseOrder = [...]string{
	"first_house", "second_house", "third_house", "fourth_house",
	"fifth_house", "sixth_house", "seventh_house", "eighth_house",
	"ninth_house", "tenth_house", "eleventh_house", "twelfth_house",
}

// Aspect is a named exact angle.
type Aspect struct {
	Name  string
	Exact float64
}

// aspectTable is iterated in declaration order; output order depends on it.
var aspectTable = [...]Aspect{
	{Name: "Conjunction", Exact: 0},
	{Name: "Opposition", Exact: 180},
	{Name: "Trine", Exact: 120},
	{Name: "Square", Exact: 90},
	{Name: "Sextile", Exact: 60},
}

// Bodies returns the canonical body order used for filtering and output.
func Bodies() []string { return append([]string(nil), bodyOrder[:]...) }

// Houses returns the canonical house order.
func Houses() []string { return append([]string(nil), houseOrder[:]...) }

// Aspects returns the aspect table in matching order.
func Aspects() []Aspect { return append([]Aspect(nil), aspectTable[:]...) }

// AspectOrb is the allowed deviation from an exact aspect angle, in degrees.
const AspectOrb = 5.0

// Element names.
const (
	Fire  = "fire"
	Earth = "earth"
	Air   = "air"
	Water = "water"
)

var signElements = map[string]string{
	"Ari": Fire, "Leo": Fire, "Sag": Fire,
	"Tau": Earth, "Vir": Earth, "Cap": Earth,
	"Gem": Air, "Lib": Air, "Aqu": Air,
	"Can": Water, "Sco": Water, "Pis": Water,
}

// ElementOf returns the element of a sign code and whether it is known.
func ElementOf(sign string) (string, bool) {
	e, ok := signElements[sign]
	return e, ok
}

// DefaultElementLimit is how many leading bodies feed the element summary.
const DefaultElementLimit = 10
