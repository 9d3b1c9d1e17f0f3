package repository

import "strings"

// HouseSystem is an ephemeris house system identifier.
type HouseSystem string

const (
	HousePlacidus      HouseSystem = "P"
	HouseKoch          HouseSystem = "K"
	HouseWholeSign     HouseSystem = "W"
	HouseEqual         HouseSystem = "A"
	HouseRegiomontanus HouseSystem = "R"
	HouseCampanus      HouseSystem = "C"
	HousePorphyry      HouseSystem = "O"
	HouseMorinus       HouseSystem = "M"
)

// ZodiacType selects tropical or sidereal longitudes.
type ZodiacType string

const (
	ZodiacTropic   ZodiacType = "Tropic"
	ZodiacSidereal ZodiacType = "Sidereal"
)

// IsValidHouseSystem returns true if hs is a supported house system.
func IsValidHouseSystem(hs HouseSystem) bool {
	switch hs {
	case HousePlacidus, HouseKoch, HouseWholeSign, HouseEqual,
		HouseRegiomontanus, HouseCampanus, HousePorphyry, HouseMorinus:
		return true
	default:
		return false
	}
}

// DefaultHouseSystem returns the default house system.
func DefaultHouseSystem() HouseSystem { return HousePlacidus }

// NormalizeHouseSystem converts raw string to a valid house system (or default).
func NormalizeHouseSystem(s string) HouseSystem {
	hs := HouseSystem(strings.ToUpper(strings.TrimSpace(s)))
	if IsValidHouseSystem(hs) {
		return hs
	}
	return DefaultHouseSystem()
}

// NormalizeZodiacType converts raw string to a valid zodiac type (or Tropic).
func NormalizeZodiacType(s string) ZodiacType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sidereal":
		return ZodiacSidereal
	default:
		return ZodiacTropic
	}
}
