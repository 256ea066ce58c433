package forecast

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Unit is the temperature display unit.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ErrInvalidUnit is returned by ParseUnit for anything other than C or F.
var ErrInvalidUnit = errors.New("unit must be C or F")

var directions = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// ParseUnit accepts C/F (any case) or the full names. Empty input means Celsius.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	default:
		return "", ErrInvalidUnit
	}
}

// Symbol returns the display suffix, e.g. "°C".
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// ConvertTemp converts a Celsius reading into unit.
func ConvertTemp(tempC float64, unit Unit) float64 {
	if unit == Fahrenheit {
		return tempC*9/5 + 32
	}
	return tempC
}

// FormatTemp converts and renders with one decimal place.
func FormatTemp(tempC float64, unit Unit) string {
	return strconv.FormatFloat(ConvertTemp(tempC, unit), 'f', 1, 64)
}

// ConvertWindSpeed renders a m/s speed as km/h with one decimal place.
func ConvertWindSpeed(speedMs float64) string {
	return strconv.FormatFloat(speedMs*3.6, 'f', 1, 64)
}

// CardinalDirection maps degrees to one of eight 45° sectors centered on N, NE, ... NW.
// Out-of-range input wraps modulo 360. Non-finite input has no direction and yields "".
func CardinalDirection(deg float64) string {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return ""
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	i := int(math.Floor((d+22.5)/45)) % 8
	return directions[i]
}
