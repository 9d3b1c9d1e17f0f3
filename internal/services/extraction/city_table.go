package extraction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

var (
	ErrCityNotFound    = errors.New("city not found in table")
	ErrCityAmbiguous   = errors.New("city matches more than one province")
	ErrLookupExhausted = errors.New("city table already consulted for this extraction")
)

// CityEntry is one row of the city reference table.
type CityEntry struct {
	Province string  `json:"province"`
	City     string  `json:"city"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// CityLookup resolves a (province, city) pair to coordinates.
type CityLookup interface {
	Lookup(province, city string) (CityEntry, error)
}

// CityTable is an immutable in-memory index over the reference rows.
type CityTable struct {
	entries []CityEntry
	byPair  map[string]int
	byCity  map[string][]int
}

// LoadCityTable reads a .xlsx (sheet, or the first sheet when empty) or .csv file.
// The header row must contain "City" ("Province, City") and "Coordinates" ("lat, lng").
func LoadCityTable(path, sheet string) (*CityTable, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, sheet)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported city table format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return NewCityTable(rows)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open city table: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("city table %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open city table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// NewCityTable indexes raw rows; the first row is the header.
func NewCityTable(rows [][]string) (*CityTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("city table is empty")
	}
	cityCol, coordCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "city":
			cityCol = i
		case "coordinates":
			coordCol = i
		}
	}
	if cityCol < 0 || coordCol < 0 {
		return nil, fmt.Errorf("city table header needs City and Coordinates columns")
	}

	t := &CityTable{
		entries: make([]CityEntry, 0, len(rows)-1),
		byPair:  make(map[string]int, len(rows)-1),
		byCity:  make(map[string][]int, len(rows)-1),
	}
	for n, row := range rows[1:] {
		if cityCol >= len(row) || coordCol >= len(row) {
			continue
		}
		province, city, ok := splitPair(row[cityCol])
		if !ok {
			continue
		}
		lat, lng, err := parseCoordinates(row[coordCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		t.add(CityEntry{Province: province, City: city, Lat: lat, Lng: lng})
	}
	if len(t.entries) == 0 {
		return nil, fmt.Errorf("city table has no usable rows")
	}
	return t, nil
}

func (t *CityTable) add(e CityEntry) {
	key := pairKey(e.Province, e.City)
	if _, dup := t.byPair[key]; dup {
		return
	}
	idx := len(t.entries)
	t.entries = append(t.entries, e)
	t.byPair[key] = idx
	c := normalizeName(e.City)
	t.byCity[c] = append(t.byCity[c], idx)
}

// Len returns the number of indexed cities.
func (t *CityTable) Len() int { return len(t.entries) }

// Lookup matches (province, city) exactly after normalization, falling back to
// the city alone when exactly one province has it.
func (t *CityTable) Lookup(province, city string) (CityEntry, error) {
	if strings.TrimSpace(city) == "" {
		return CityEntry{}, ErrCityNotFound
	}
	if province != "" {
		if idx, ok := t.byPair[pairKey(province, city)]; ok {
			return t.entries[idx], nil
		}
	}
	switch idxs := t.byCity[normalizeName(city)]; len(idxs) {
	case 0:
		return CityEntry{}, fmt.Errorf("%s, %s: %w", province, city, ErrCityNotFound)
	case 1:
		return t.entries[idxs[0]], nil
	default:
		return CityEntry{}, fmt.Errorf("%s: %w", city, ErrCityAmbiguous)
	}
}

// OneShot returns a lookup that answers once and refuses every later call.
func (t *CityTable) OneShot() CityLookup {
	return &oneShotLookup{table: t}
}

type oneShotLookup struct {
	table CityLookup
	mu    sync.Mutex
	used  bool
}

func (o *oneShotLookup) Lookup(province, city string) (CityEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.used {
		return CityEntry{}, ErrLookupExhausted
	}
	o.used = true
	return o.table.Lookup(province, city)
}

func splitPair(s string) (string, string, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	p, c := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if p == "" || c == "" {
		return "", "", false
	}
	return p, c, true
}

func parseCoordinates(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad coordinates %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad longitude %q: %w", parts[1], err)
	}
	return lat, lng, nil
}

var nameReplacer = strings.NewReplacer(
	"ي", "ی", // Arabic yeh to Persian yeh
	"ى", "ی",
	"ك", "ک", // Arabic kaf to Persian kaf
	"‌", " ", // zero-width non-joiner
	"-", " ",
)

func normalizeName(s string) string {
	s = nameReplacer.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

func pairKey(province, city string) string {
	return normalizeName(province) + "|" + normalizeName(city)
}
