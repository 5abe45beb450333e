package units

import (
	"fmt"
	"math"
)

// Temperature in kelvin.
type Temperature float64

// NewTemperature returns a validated temperature. Negative temperatures are
// only allowed as sentinels and are left for callers to interpret.
func NewTemperature(kelvin float64) (Temperature, error) {
	if math.IsNaN(kelvin) || math.IsInf(kelvin, 0) {
		return 0, fmt.Errorf("temperature must be finite, got %v", kelvin)
	}
	return Temperature(kelvin), nil
}

// Kelvin returns the value in kelvin.
func (t Temperature) Kelvin() float64 { return float64(t) }

// Celsius returns the value in degrees Celsius.
func (t Temperature) Celsius() float64 { return float64(t) - 273.15 }

func (t Temperature) String() string { return Format(float64(t)) + "K" }

// Length in angstrom.
type Length float64

// NewLength returns a validated length. Infinite lengths are allowed since
// some thresholds use +inf to mean "no limit".
func NewLength(aa float64) (Length, error) {
	if math.IsNaN(aa) {
		return 0, fmt.Errorf("length must not be NaN")
	}
	return Length(aa), nil
}

// Angstrom returns the value in angstrom.
func (l Length) Angstrom() float64 { return float64(l) }

func (l Length) String() string { return Format(float64(l)) + "Aa" }

// Angle in radians.
type Angle float64

// NewAngle returns a validated, finite angle.
func NewAngle(rad float64) (Angle, error) {
	if math.IsNaN(rad) || math.IsInf(rad, 0) {
		return 0, fmt.Errorf("angle must be finite, got %v", rad)
	}
	return Angle(rad), nil
}

// Radians returns the value in radians.
func (a Angle) Radians() float64 { return float64(a) }

// Degrees returns the value in degrees.
func (a Angle) Degrees() float64 { return float64(a) * 180 / math.Pi }

// String renders the angle in radians followed by the equivalent in degrees,
// e.g. "0.0174533rad (1deg)".
func (a Angle) String() string {
	return fmt.Sprintf("%grad (%gdeg)", float64(a), a.Degrees())
}

// Render formats a canonical-unit value of kind k for display, appending the
// canonical suffix where there is one.
func Render(k Kind, v float64) string {
	return Format(v) + k.CanonicalSuffix()
}
