package cfg

import (
	"math"
	"strconv"
	"strings"

	"github.com/nccfg/nccfg/pkg/units"
)

// AtomDBNoDefaults is the line that discards the built-in atom database.
const AtomDBNoDefaults = "nodefaults"

// ParseAtomDB splits an atomdb override string into normalised lines. Lines
// are separated by '@'; inside a line ':' counts as whitespace. Each line is
// whitespace-normalised, validated, and returned with ':' as field separator.
func ParseAtomDB(s string) ([]string, error) {
	var lines []string
	for _, raw := range strings.Split(s, "@") {
		fields := strings.Fields(strings.ReplaceAll(raw, ":", " "))
		if len(fields) == 0 {
			continue
		}
		joined := strings.Join(fields, ":")
		if err := ValidateAtomDBLine(fields); err != nil {
			bi := err.(*BadInputError)
			bi.Reason = "invalid entry in the line \"" + joined + "\": " + bi.Reason
			return nil, bi
		}
		if joined == AtomDBNoDefaults && len(lines) > 0 {
			return nil, newBadInput(ErrCodeSyntax, joined, "\"nodefaults\" must be the first line")
		}
		lines = append(lines, joined)
	}
	return lines, nil
}

// NormalizeAtomDB returns the canonical '@'-joined form of an atomdb string.
func NormalizeAtomDB(s string) (string, error) {
	lines, err := ParseAtomDB(s)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "@"), nil
}

// MergeAtomDB appends override lines to inherited lines. A "nodefaults" line
// in either input is hoisted to the front of the result.
func MergeAtomDB(inherited, override []string) []string {
	var nodefaults bool
	out := make([]string, 0, len(inherited)+len(override)+1)
	for _, src := range [][]string{inherited, override} {
		for _, l := range src {
			if l == AtomDBNoDefaults {
				nodefaults = true
				continue
			}
			out = append(out, l)
		}
	}
	if nodefaults {
		out = append([]string{AtomDBNoDefaults}, out...)
	}
	return out
}

// ValidateAtomDBLine validates the fields of one @ATOMDB line. Accepted forms:
//
//	nodefaults
//	<label> <mass>u <coh_sl>fm <incoh_xs>b <abs_xs>b
//	<label> is <label>
//	<label> is <frac> <label> [<frac> <label> ...]
func ValidateAtomDBLine(fields []string) error {
	line := strings.Join(fields, " ")
	switch {
	case len(fields) == 0:
		return newBadInput(ErrCodeSyntax, line, "empty line")
	case fields[0] == AtomDBNoDefaults:
		if len(fields) != 1 {
			return newBadInput(ErrCodeSyntax, line, "\"nodefaults\" must appear alone on its line")
		}
		return nil
	case len(fields) >= 3 && fields[1] == "is":
		return validateAtomDBComposition(line, fields[0], fields[2:])
	case len(fields) == 5:
		return validateAtomDBData(line, fields)
	}
	return newBadInput(ErrCodeSyntax, line,
		"unrecognised format (expected \"<label> <mass>u <cohsl>fm <incxs>b <absxs>b\" or \"<label> is ...\")")
}

func validateAtomDBData(line string, fields []string) error {
	if !IsValidAtomLabel(fields[0]) {
		return newBadInput(ErrCodeSyntax, fields[0], "invalid element or isotope label")
	}
	type spec struct {
		suffix  string
		what    string
		nonNeg  bool
		posOnly bool
	}
	specs := []spec{
		{"u", "mass", false, true},
		{"fm", "coherent scattering length", false, false},
		{"b", "incoherent cross section", true, false},
		{"b", "absorption cross section", true, false},
	}
	for i, sp := range specs {
		tok := fields[i+1]
		if !strings.HasSuffix(tok, sp.suffix) {
			return newBadInput(ErrCodeSyntax, tok, "%s must have the unit suffix %q", sp.what, sp.suffix)
		}
		v, err := units.ParseNumber(strings.TrimSuffix(tok, sp.suffix))
		if err != nil || math.IsInf(v, 0) {
			return newBadInput(ErrCodeSyntax, tok, "invalid %s", sp.what)
		}
		if sp.posOnly && !(v > 0) {
			return newBadInput(ErrCodeRange, tok, "%s must be positive", sp.what)
		}
		if sp.nonNeg && v < 0 {
			return newBadInput(ErrCodeRange, tok, "%s must not be negative", sp.what)
		}
	}
	return nil
}

func validateAtomDBComposition(line, label string, rest []string) error {
	if !IsValidAtomLabel(label) {
		return newBadInput(ErrCodeSyntax, label, "invalid element or isotope label")
	}
	if len(rest) == 1 {
		if !IsValidAtomLabel(rest[0]) {
			return newBadInput(ErrCodeSyntax, rest[0], "invalid element or isotope label")
		}
		return nil
	}
	if len(rest)%2 != 0 {
		return newBadInput(ErrCodeSyntax, line, "composition must consist of <fraction> <label> pairs")
	}
	seen := make(map[string]bool, len(rest)/2)
	var sum float64
	for i := 0; i < len(rest); i += 2 {
		frac, err := units.ParseNumber(rest[i])
		if err != nil {
			return newBadInput(ErrCodeSyntax, rest[i], "invalid fraction")
		}
		if !(frac > 0 && frac <= 1) {
			return newBadInput(ErrCodeRange, rest[i], "fractions must be in the range (0,1]")
		}
		comp := rest[i+1]
		if !IsValidAtomLabel(comp) {
			return newBadInput(ErrCodeSyntax, comp, "invalid element or isotope label")
		}
		if seen[comp] {
			return newBadInput(ErrCodeSyntax, comp, "component listed more than once")
		}
		seen[comp] = true
		sum += frac
	}
	if math.Abs(sum-1) > 1e-10 {
		return newBadInput(ErrCodeRange, line, "fractions must sum to unity (got %s)", units.Format(sum))
	}
	return nil
}

var elementSymbols = func() map[string]bool {
	const all = "H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr Mn Fe Co Ni Cu Zn" +
		" Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs Ba La Ce Pr Nd" +
		" Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn Fr Ra Ac Th" +
		" Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds Rg Cn Nh Fl Mc Lv Ts Og"
	m := make(map[string]bool, 118)
	for _, s := range strings.Fields(all) {
		m[s] = true
	}
	return m
}()

// IsValidAtomLabel reports whether s names an element ("Al"), an isotope
// ("Al27", "H2", "D", "T") or a custom marker ("X", "X1".."X99").
func IsValidAtomLabel(s string) bool {
	if elementSymbols[s] || s == "D" || s == "T" || s == "X" {
		return true
	}
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return false
	}
	sym, digits := s[:i], s[i:]
	if digits[0] == '0' {
		return false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return false
	}
	if sym == "X" {
		return n >= 1 && n <= 99
	}
	return elementSymbols[sym] && n >= 1 && n <= 300
}
