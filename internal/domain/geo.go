package domain

import (
	"fmt"
	"math"
	"strings"
)

// Earth radii for the haversine formula.
const (
	EarthRadiusKm    = 6371.0
	EarthRadiusMiles = 3958.8
)

// Unit selects the distance unit.
type Unit string

const (
	Kilometers Unit = "km"
	Miles      Unit = "miles"
)

// ParseUnit maps common spellings ("km", "kilometres", "mi", "Miles") to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "km", "kms", "kilometer", "kilometers", "kilometre", "kilometres":
		return Kilometers, nil
	case "mi", "mile", "miles":
		return Miles, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}

func (u Unit) radius() (float64, bool) {
	switch u {
	case Kilometers:
		return EarthRadiusKm, true
	case Miles:
		return EarthRadiusMiles, true
	default:
		return 0, false
	}
}

// Valid reports whether u is Kilometers or Miles.
func (u Unit) Valid() bool {
	_, ok := u.radius()
	return ok
}

// GeoCoordinate is a WGS84 latitude/longitude pair in decimal degrees.
type GeoCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the haversine great-circle distance between a and b in the
// given unit, rounded to two decimal places.
func Distance(a, b GeoCoordinate, unit Unit) (float64, error) {
	r, ok := unit.radius()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Asin(math.Sqrt(h))
	return roundTo2(r * c), nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
