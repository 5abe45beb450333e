package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the physical dimension of a numeric value.
type Kind string

const (
	// KindNone marks values that carry no physical unit at all (strings,
	// booleans, vectors).
	KindNone Kind = ""

	// KindPureNumber is a dimensionless number; no suffix is accepted.
	KindPureNumber Kind = "purenumber"

	// KindTemperature is measured in kelvin.
	KindTemperature Kind = "temperature"

	// KindLength is measured in angstrom.
	KindLength Kind = "length"

	// KindAngle is measured in radians.
	KindAngle Kind = "angle"
)

// ErrUnknownSuffix is returned when a token carries a unit suffix that the
// requested kind does not recognise.
var ErrUnknownSuffix = errors.New("unknown unit suffix")

// ErrMalformedNumber is returned when the numeric part of a token can not be
// parsed.
var ErrMalformedNumber = errors.New("malformed number")

// suffix describes one accepted spelling of a unit and how to convert it to
// the canonical unit of its kind.
type suffix struct {
	name    string
	convert func(float64) float64
}

func scale(f float64) func(float64) float64 {
	return func(v float64) float64 { return v * f }
}

// fromDegrees divides before multiplying by pi so that 90deg and 180deg map
// exactly onto math.Pi/2 and math.Pi.
func fromDegrees(f float64) func(float64) float64 {
	return func(v float64) float64 { return v * f / 180 * math.Pi }
}

// Suffix tables are ordered longest first so that "mrad" wins over "rad".
var suffixTables = map[Kind][]suffix{
	KindTemperature: {
		{"K", scale(1)},
		{"C", func(v float64) float64 { return v + 273.15 }},
		{"F", func(v float64) float64 { return (v + 459.67) * 5.0 / 9.0 }},
	},
	KindLength: {
		{"Aa", scale(1)},
		{"nm", scale(10)},
		{"um", scale(1e4)},
		{"mm", scale(1e7)},
		{"cm", scale(1e8)},
		{"pm", scale(1e-2)},
		{"m", scale(1e10)},
	},
	KindAngle: {
		{"arcmin", fromDegrees(1.0 / 60)},
		{"arcsec", fromDegrees(1.0 / 3600)},
		{"mrad", scale(1e-3)},
		{"deg", fromDegrees(1)},
		{"rad", scale(1)},
	},
}

// CanonicalSuffix returns the suffix of the canonical unit of k, or "" for
// dimensionless kinds.
func (k Kind) CanonicalSuffix() string {
	switch k {
	case KindTemperature:
		return "K"
	case KindLength:
		return "Aa"
	case KindAngle:
		return "rad"
	}
	return ""
}

// Suffixes lists the accepted suffix spellings of k.
func (k Kind) Suffixes() []string {
	tbl := suffixTables[k]
	out := make([]string, 0, len(tbl))
	for _, s := range tbl {
		out = append(out, s.name)
	}
	return out
}

// Parse parses token as a number of the given kind and returns it in the
// canonical unit. Surrounding whitespace is ignored. Infinities are accepted
// ("inf"), NaN and hexadecimal notation are not. A suffix is only split off
// when the text before it is a number, so "INF" is infinity and not "IN"
// followed by a Fahrenheit suffix.
func Parse(k Kind, token string) (float64, error) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return 0, fmt.Errorf("%w: empty value", ErrMalformedNumber)
	}
	if err := checkDecimal(tok); err != nil {
		return 0, err
	}

	for _, s := range suffixTables[k] {
		if !strings.HasSuffix(tok, s.name) || len(tok) == len(s.name) {
			continue
		}
		if v, err := ParseNumber(strings.TrimSuffix(tok, s.name)); err == nil {
			return s.convert(v), nil
		}
	}

	v, err := ParseNumber(tok)
	if err != nil {
		if startsNumeric(tok) && len(suffixTables[k]) > 0 {
			return 0, fmt.Errorf("%w in %q (accepted: %s)", ErrUnknownSuffix, tok, strings.Join(k.Suffixes(), ", "))
		}
		return 0, err
	}
	return v, nil
}

// ParseNumber parses a plain decimal floating point number without any
// suffix.
func ParseNumber(token string) (float64, error) {
	tok := strings.TrimSpace(token)
	if err := checkDecimal(tok); err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, token)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: NaN is not allowed", ErrMalformedNumber)
	}
	return v, nil
}

// checkDecimal rejects the hexadecimal floats strconv would otherwise accept.
func checkDecimal(tok string) error {
	t := strings.TrimLeft(tok, "+-")
	if len(t) > 1 && t[0] == '0' && (t[1] == 'x' || t[1] == 'X') {
		return fmt.Errorf("%w: %q (hexadecimal notation is not accepted)", ErrMalformedNumber, tok)
	}
	return nil
}

// ParseInt parses a plain integer. Values written in floating point notation
// are accepted only when they are integral ("3e2" is 300, "2.5" fails).
func ParseInt(token string) (int64, error) {
	tok := strings.TrimSpace(token)
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return i, nil
	}
	f, err := ParseNumber(tok)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 9.2e18 {
		return 0, fmt.Errorf("%w: %q is not an integral value", ErrMalformedNumber, token)
	}
	return int64(f), nil
}

func startsNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

// Format renders a float with the shortest representation that parses back
// to the same value.
func Format(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
