package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	domsvc "AstroPull/internal/domain/service"
	applogger "AstroPull/pkg/logger"
)

// flexInt accepts 7, "7" and "07".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("empty number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*f = flexInt(n)
	return nil
}

type modelReply struct {
	Name     string   `json:"name"`
	Calendar string   `json:"calendar"`
	Year     *flexInt `json:"year"`
	Month    *flexInt `json:"month"`
	Day      *flexInt `json:"day"`
	Hour     *flexInt `json:"hour"`
	Minute   *flexInt `json:"minute"`
	Period   string   `json:"period"`
	Province string   `json:"province"`
	City     string   `json:"city"`
	TZStr    string   `json:"tz_str"`
}

// LLMExtractor implements FieldExtractor with a chat model and the city table.
type LLMExtractor struct {
	llm       Completer
	cities    *CityTable
	defaultTZ string
	l         *applogger.Logger
}

// NewLLMExtractor wires the model client and city table.
func NewLLMExtractor(llm Completer, cities *CityTable, defaultTZ string, l *applogger.Logger) *LLMExtractor {
	if defaultTZ == "" {
		defaultTZ = "Asia/Tehran"
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &LLMExtractor{llm: llm, cities: cities, defaultTZ: defaultTZ, l: l}
}

var _ domsvc.FieldExtractor = (*LLMExtractor)(nil)

// Extract makes one model call and at most one city lookup. Any semantic failure
// wraps ErrExtractionFailed; model failures wrap
// ErrExtractorUnavailable so callers may retry.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*models.BirthData, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text: %w", domsvc.ErrExtractionFailed)
	}
	if e.cities == nil {
		return nil, fmt.Errorf("%w: city table not loaded", domsvc.ErrExtractorUnavailable)
	}

	start := time.Now()
	reply, err := e.llm.Complete(ctx, systemPrompt, text)
	if err != nil {
		return nil, err
	}
	e.l.Debug("llm reply received", applogger.Duration("duration_ms", time.Since(start)), applogger.Int("bytes", len(reply)))

	return e.parse(reply, e.cities.OneShot())
}

func (e *LLMExtractor) parse(reply string, lookup CityLookup) (*models.BirthData, error) {
	body := stripFences(reply)
	if strings.EqualFold(body, "false") {
		return nil, fmt.Errorf("model declined: %w", domsvc.ErrExtractionFailed)
	}

	var r modelReply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("unparseable reply: %v: %w", err, domsvc.ErrExtractionFailed)
	}
	if err := r.complete(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domsvc.ErrExtractionFailed)
	}

	year, month, day := int(*r.Year), int(*r.Month), int(*r.Day)
	cal, ok := NormalizeCalendar(r.Calendar)
	if !ok {
		return nil, fmt.Errorf("unknown calendar %q: %w", r.Calendar, domsvc.ErrExtractionFailed)
	}
	if cal == CalendarJalali {
		var err error
		year, month, day, err = JalaliToGregorian(year, month, day)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, domsvc.ErrExtractionFailed)
		}
	} else if !ValidGregorian(year, month, day) {
		return nil, fmt.Errorf("invalid date %d-%02d-%02d: %w", year, month, day, domsvc.ErrExtractionFailed)
	}

	hour, err := To24Hour(int(*r.Hour), r.Period)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domsvc.ErrExtractionFailed)
	}
	minute := int(*r.Minute)
	if minute < 0 || minute > 59 {
		return nil, fmt.Errorf("minute %d out of range: %w", minute, domsvc.ErrExtractionFailed)
	}

	city, err := lookup.Lookup(r.Province, r.City)
	if err != nil {
		return nil, fmt.Errorf("city lookup: %w: %w", err, domsvc.ErrExtractionFailed)
	}

	tz := strings.TrimSpace(r.TZStr)
	if tz == "" {
		tz = e.defaultTZ
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", tz, domsvc.ErrExtractionFailed)
	}

	return &models.BirthData{
		Name:         strings.TrimSpace(r.Name),
		Year:         year,
		Month:        month,
		Day:          day,
		Hour:         hour,
		Minute:       minute,
		Lat:          city.Lat,
		Lng:          city.Lng,
		City:         city.City,
		TZStr:        tz,
		HousesSystem: string(domrepo.DefaultHouseSystem()),
		ZodiacType:   string(domrepo.ZodiacTropic),
	}, nil
}

func (r *modelReply) complete() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Year == nil || r.Month == nil || r.Day == nil {
		missing = append(missing, "date")
	}
	if r.Hour == nil || r.Minute == nil {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(r.City) == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return errors.New("missing " + strings.Join(missing, ", "))
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return strings.Trim(s, "`")
}
