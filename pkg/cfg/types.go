package cfg

import (
	"fmt"
	"math"
	"strings"

	"github.com/nccfg/nccfg/pkg/units"
)

// ValueKind is the closed set of value types a variable can hold.
type ValueKind string

const (
	KindDouble    ValueKind = "double"
	KindInt       ValueKind = "int"
	KindBool      ValueKind = "bool"
	KindString    ValueKind = "string"
	KindVector    ValueKind = "vector"
	KindOrientDir ValueKind = "orientdir"
)

// Group is the functional category of a variable, used for documentation.
type Group string

const (
	GroupInfo         Group = "info"
	GroupScatterBase  Group = "scatter_base"
	GroupScatterExtra Group = "scatter_extra"
	GroupAbsorption   Group = "absorption"
)

// Vector is a 3-component Cartesian vector.
type Vector [3]float64

// Mag2 returns the squared magnitude.
func (v Vector) Mag2() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// Mag returns the magnitude.
func (v Vector) Mag() float64 {
	return math.Sqrt(v.Mag2())
}

// IsFinite reports whether all components and the magnitude are finite.
func (v Vector) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return !math.IsInf(v.Mag2(), 0)
}

// Unit returns v scaled to unit length. The zero vector is returned as is.
func (v Vector) Unit() Vector {
	m := v.Mag()
	if m == 0 {
		return v
	}
	return Vector{v[0] / m, v[1] / m, v[2] / m}
}

// String renders the vector as "x,y,z".
func (v Vector) String() string {
	return units.Format(v[0]) + "," + units.Format(v[1]) + "," + units.Format(v[2])
}

// CrystalFrame identifies how the crystal half of an OrientDir is expressed.
type CrystalFrame int

const (
	// FrameMissing means no crystal direction has been given.
	FrameMissing CrystalFrame = iota

	// FrameAxis is a Cartesian direction in direct-lattice coordinates.
	FrameAxis

	// FrameHKL is the normal of an HKL plane in reciprocal space.
	FrameHKL
)

// OrientDir ties a direction in the crystal frame to a direction in the lab
// frame. Exactly one crystal representation is present in a valid value.
type OrientDir struct {
	Frame   CrystalFrame
	Crystal Vector
	Lab     Vector
}

// NewOrientDir returns a validated orientation direction.
func NewOrientDir(frame CrystalFrame, crystal, lab Vector) (OrientDir, error) {
	od := OrientDir{Frame: frame, Crystal: crystal, Lab: lab}
	if err := od.Validate(); err != nil {
		return OrientDir{}, err
	}
	return od, nil
}

// Validate checks the orientation invariants.
func (o OrientDir) Validate() error {
	if o.Frame != FrameAxis && o.Frame != FrameHKL {
		return newBadInput(ErrCodeStructure, o.String(), "crystal frame direction is missing")
	}
	if !o.Crystal.IsFinite() {
		return newBadInput(ErrCodeStructure, o.String(), "crystal frame direction contains non-finite values")
	}
	if !o.Lab.IsFinite() {
		return newBadInput(ErrCodeStructure, o.String(), "lab frame direction contains non-finite values")
	}
	if o.Crystal.Mag2() == 0 {
		return newBadInput(ErrCodeStructure, o.String(), "crystal frame direction is a null vector")
	}
	if o.Lab.Mag2() == 0 {
		return newBadInput(ErrCodeStructure, o.String(), "lab frame direction is a null vector")
	}
	return nil
}

// String renders the direction in the syntax accepted by ParseOrientDir.
func (o OrientDir) String() string {
	var b strings.Builder
	switch o.Frame {
	case FrameAxis:
		b.WriteString("@crys:" + o.Crystal.String())
	case FrameHKL:
		b.WriteString("@crys_hkl:" + o.Crystal.String())
	default:
		b.WriteString("@crys:<MISSING>")
	}
	b.WriteString("@lab:" + o.Lab.String())
	return b.String()
}

// DensityType tags the meaning of a DensityState value.
type DensityType int

const (
	// DensityScaleFactor scales the density of the input data.
	DensityScaleFactor DensityType = iota

	// DensityMass is an absolute mass density in g/cm3.
	DensityMass

	// DensityNumber is an absolute number density in atoms/Aa3.
	DensityNumber
)

// DensityState is a density override: a scale factor, a mass density or a
// number density.
type DensityState struct {
	Type  DensityType
	Value float64
}

// String renders the density with the suffix matching its type.
func (d DensityState) String() string {
	switch d.Type {
	case DensityMass:
		return units.Format(d.Value) + "gcm3"
	case DensityNumber:
		return units.Format(d.Value) + "perAa3"
	default:
		return units.Format(d.Value) + "x"
	}
}

// ParseDensityState parses "<num>x", "<num>gcm3", "<num>kgm3" or
// "<num>perAa3". Values must be finite and positive.
func ParseDensityState(s string) (DensityState, error) {
	tok := strings.TrimSpace(s)
	type sfx struct {
		name string
		typ  DensityType
		f    float64
	}
	for _, e := range []sfx{
		{"perAa3", DensityNumber, 1},
		{"gcm3", DensityMass, 1},
		{"kgm3", DensityMass, 1e-3},
		{"x", DensityScaleFactor, 1},
	} {
		if !strings.HasSuffix(tok, e.name) {
			continue
		}
		v, err := units.ParseNumber(strings.TrimSuffix(tok, e.name))
		if err != nil {
			return DensityState{}, newBadInput(ErrCodeSyntax, s, "malformed density value").WithCause(err)
		}
		v *= e.f
		if !(v > 0) || math.IsInf(v, 0) {
			return DensityState{}, newBadInput(ErrCodeRange, s, "density must be a positive finite number")
		}
		return DensityState{Type: e.typ, Value: v}, nil
	}
	return DensityState{}, newBadInput(ErrCodeSyntax, s, "density requires a unit suffix (x, gcm3, kgm3 or perAa3)")
}

// Value is a tagged union holding one parsed configuration value. Only the
// field matching Kind is meaningful.
type Value struct {
	Kind   ValueKind
	Double float64
	Int    int64
	Bool   bool
	Str    string
	Vec    Vector
	Dir    OrientDir
}

// DoubleValue wraps a float64.
func DoubleValue(v float64) Value { return Value{Kind: KindDouble, Double: v} }

// IntValue wraps an int64.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// VectorValue wraps a Vector.
func VectorValue(v Vector) Value { return Value{Kind: KindVector, Vec: v} }

// OrientDirValue wraps an OrientDir.
func OrientDirValue(v OrientDir) Value { return Value{Kind: KindOrientDir, Dir: v} }

// String renders the value in canonical text form, suitable for re-parsing.
func (v Value) String() string {
	switch v.Kind {
	case KindDouble:
		return units.Format(v.Double)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindString:
		return v.Str
	case KindVector:
		return v.Vec.String()
	case KindOrientDir:
		return v.Dir.String()
	}
	return ""
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindDouble:
		return v.Double == o.Double
	case KindInt:
		return v.Int == o.Int
	case KindBool:
		return v.Bool == o.Bool
	case KindString:
		return v.Str == o.Str
	case KindVector:
		return v.Vec == o.Vec
	case KindOrientDir:
		return v.Dir == o.Dir
	}
	return true
}

// Interface returns the payload as a plain Go value, for structured output.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindDouble:
		if math.IsInf(v.Double, 0) {
			return units.Format(v.Double)
		}
		return v.Double
	case KindInt:
		return v.Int
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str
	case KindVector:
		return []float64{v.Vec[0], v.Vec[1], v.Vec[2]}
	case KindOrientDir:
		return v.Dir.String()
	}
	return nil
}
