package models

import "fmt"

// BirthData is everything the ephemeris provider needs to cast a chart.
type BirthData struct {
	Name         string  `json:"name" validate:"required,max=128"`
	Year         int     `json:"year" validate:"required,gte=1,lte=3000"`
	Month        int     `json:"month" validate:"required,gte=1,lte=12"`
	Day          int     `json:"day" validate:"required,gte=1,lte=31"`
	Hour         int     `json:"hour" validate:"gte=0,lte=23"`
	Minute       int     `json:"minute" validate:"gte=0,lte=59"`
	Lat          float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng          float64 `json:"lng" validate:"gte=-180,lte=180"`
	City         string  `json:"city" validate:"required"`
	TZStr        string  `json:"tz_str" validate:"required,timezone"`
	HousesSystem string  `json:"houses_system,omitempty" default:"P"`
	ZodiacType   string  `json:"zodiac_type,omitempty" default:"Tropic"`
}

// PairInput carries two subjects for relationship endpoints.
type PairInput struct {
	Person1 BirthData `json:"person1"`
	Person2 BirthData `json:"person2"`
}

// BirthRecord is a stored birth record (table users).
type BirthRecord struct {
	ID     int64
	Name   string
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Lat    float64
	Lng    float64
	City   string
	TZStr  string
}

// Birthdate formats the date part as YYYY-MM-DD.
func (r *BirthRecord) Birthdate() string {
	return fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day)
}

// Birthtime formats the time part as HH:MM.
func (r *BirthRecord) Birthtime() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// BirthData converts the stored record into ephemeris input.
func (r *BirthRecord) BirthData() BirthData {
	return BirthData{
		Name:         r.Name,
		Year:         r.Year,
		Month:        r.Month,
		Day:          r.Day,
		Hour:         r.Hour,
		Minute:       r.Minute,
		Lat:          r.Lat,
		Lng:          r.Lng,
		City:         r.City,
		TZStr:        r.TZStr,
		HousesSystem: "P",
		ZodiacType:   "Tropic",
	}
}

// NewBirthRecord builds a record from extracted or submitted birth data.
func NewBirthRecord(d BirthData) *BirthRecord {
	return &BirthRecord{
		Name:   d.Name,
		Year:   d.Year,
		Month:  d.Month,
		Day:    d.Day,
		Hour:   d.Hour,
		Minute: d.Minute,
		Lat:    d.Lat,
		Lng:    d.Lng,
		City:   d.City,
		TZStr:  d.TZStr,
	}
}
