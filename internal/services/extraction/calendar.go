package extraction

import (
	"fmt"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Calendar names accepted in model output.
const (
	CalendarGregorian = "gregorian"
	CalendarJalali    = "jalali"
)

// NormalizeCalendar maps the spellings the model uses onto the two known calendars.
func NormalizeCalendar(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gregorian", "miladi", "میلادی":
		return CalendarGregorian, true
	case "jalali", "shamsi", "persian", "solar hijri", "شمسی", "جلالی":
		return CalendarJalali, true
	default:
		return "", false
	}
}

// JalaliToGregorian converts a Solar Hijri date. Impossible dates are rejected.
func JalaliToGregorian(year, month, day int) (int, int, int, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("invalid jalali date %d-%02d-%02d", year, month, day)
	}
	pt := ptime.Date(year, ptime.Month(month), day, 12, 0, 0, 0, time.UTC)
	if pt.Year() != year || int(pt.Month()) != month || pt.Day() != day {
		return 0, 0, 0, fmt.Errorf("invalid jalali date %d-%02d-%02d", year, month, day)
	}
	t := pt.Time()
	return t.Year(), int(t.Month()), t.Day(), nil
}

// ValidGregorian reports whether y-m-d is a real calendar day.
func ValidGregorian(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// To24Hour converts a 12h clock hour with an am/pm marker. An empty period keeps the hour.
func To24Hour(hour int, period string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "":
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("hour %d out of range", hour)
		}
		return hour, nil
	case "am", "a.m.", "صبح", "بامداد":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("hour %d out of 12h range", hour)
		}
		if hour == 12 {
			return 0, nil
		}
		return hour, nil
	case "pm", "p.m.", "عصر", "بعدازظهر", "شب":
		if hour < 1 || hour > 12 {
			// "22:22 عصر" style inputs already carry a 24h hour.
			if hour > 12 && hour <= 23 {
				return hour, nil
			}
			return 0, fmt.Errorf("hour %d out of 12h range", hour)
		}
		if hour == 12 {
			return 12, nil
		}
		return hour + 12, nil
	default:
		return 0, fmt.Errorf("unknown period %q", period)
	}
}
