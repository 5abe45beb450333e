// Package units provides the physical quantities used by configuration
// variables: temperature, length and angle, plus dimensionless numbers.
//
// Every quantity has a canonical internal unit (kelvin, angstrom, radian).
// Parse accepts a numeric token with an optional trailing unit suffix and
// converts it to the canonical unit; a bare number is taken to already be in
// the canonical unit.
//
//	v, err := units.Parse(units.KindAngle, "0.5deg")   // 0.008726... rad
//	v, err := units.Parse(units.KindLength, "0.1nm")   // 1.0 Aa
//	v, err := units.Parse(units.KindTemperature, "20C") // 293.15 K
//
// All functions are pure and safe for concurrent use.
package units
