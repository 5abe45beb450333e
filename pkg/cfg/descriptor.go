package cfg

import (
	"math"
	"strings"

	"github.com/nccfg/nccfg/pkg/units"
)

// Default is an optional default value. A zero Default means the variable
// has no default and must be supplied together with its dependent variables.
type Default struct {
	set   bool
	value Value
}

// NoDefault marks a variable without a default value.
func NoDefault() Default { return Default{} }

// WithDefault wraps a concrete default value.
func WithDefault(v Value) Default { return Default{set: true, value: v} }

// Get returns the default value and whether there is one.
func (d Default) Get() (Value, bool) { return d.value, d.set }

// Descriptor is the immutable metadata of one configuration variable.
// The validator functions are plain function values selected per variable;
// only the one matching Kind is consulted.
type Descriptor struct {
	Name        string      `json:"name" validate:"required,lowercase,max=32,excludesall=;=@ "`
	Group       Group       `json:"group" validate:"required,oneof=info scatter_base scatter_extra absorption"`
	Kind        ValueKind   `json:"type" validate:"required,oneof=double int bool string vector orientdir"`
	Unit        units.Kind  `json:"unit,omitempty" validate:"omitempty,oneof=purenumber temperature length angle"`
	Description string      `json:"description" validate:"required"`
	RangeDoc    string      `json:"range,omitempty"`
	Requires    []string    `json:"requires,omitempty" validate:"dive,required,lowercase"`
	Default     Default     `json:"-"`

	// KeepMagnitude opts a vector variable out of the normalization to unit
	// length that is otherwise applied after validation.
	KeepMagnitude bool `json:"-"`

	checkDouble func(float64) (float64, error)
	checkInt    func(int64) (int64, error)
	str2val     func(string) (string, error)
	checkVector func(Vector) error
}

// Parse parses and validates a raw value token for this variable.
func (d *Descriptor) Parse(raw string) (Value, error) {
	var v Value
	switch d.Kind {
	case KindDouble:
		unit := d.Unit
		if unit == units.KindNone {
			unit = units.KindPureNumber
		}
		f, err := units.Parse(unit, raw)
		if err != nil {
			return Value{}, d.attribute(newBadInput(ErrCodeSyntax, raw, "%s", err.Error()).WithCause(err), raw)
		}
		v = DoubleValue(f)
	case KindInt:
		i, err := units.ParseInt(raw)
		if err != nil {
			return Value{}, d.attribute(newBadInput(ErrCodeSyntax, raw, "%s", err.Error()).WithCause(err), raw)
		}
		v = IntValue(i)
	case KindBool:
		b, err := parseBool(raw)
		if err != nil {
			return Value{}, d.attribute(err, raw)
		}
		v = BoolValue(b)
	case KindString:
		v = StringValue(strings.TrimSpace(raw))
	case KindVector:
		vec, err := ParseVector(raw)
		if err != nil {
			return Value{}, d.attribute(err, raw)
		}
		v = VectorValue(vec)
	case KindOrientDir:
		od, err := ParseOrientDir(raw)
		if err != nil {
			return Value{}, d.attribute(err, raw)
		}
		v = OrientDirValue(od)
	}
	out, err := d.check(v)
	if err != nil {
		return Value{}, d.attribute(err, raw)
	}
	return out, nil
}

// Validate checks an already typed value against this variable's rules and
// returns the canonical value to store. Legacy sentinels are remapped here.
func (d *Descriptor) Validate(v Value) (Value, error) {
	out, err := d.check(v)
	if err != nil {
		return Value{}, d.attribute(err, v.String())
	}
	return out, nil
}

func (d *Descriptor) check(v Value) (Value, error) {
	if v.Kind != d.Kind {
		return Value{}, newBadInput(ErrCodeSyntax, v.String(),
			"expected a value of type %s, got %s", d.Kind, v.Kind)
	}
	var err error
	switch d.Kind {
	case KindDouble:
		if math.IsNaN(v.Double) {
			return Value{}, newBadInput(ErrCodeRange, "", "NaN is not allowed")
		}
		if d.checkDouble != nil {
			v.Double, err = d.checkDouble(v.Double)
		}
	case KindInt:
		if d.checkInt != nil {
			v.Int, err = d.checkInt(v.Int)
		}
	case KindString:
		if d.str2val != nil {
			v.Str, err = d.str2val(v.Str)
		}
	case KindVector:
		err = checkVector(v.Vec)
		if err == nil && d.checkVector != nil {
			err = d.checkVector(v.Vec)
		}
		if err == nil && !d.KeepMagnitude {
			v.Vec = v.Vec.Unit()
		}
	case KindOrientDir:
		err = v.Dir.Validate()
	}
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

// DefaultText renders the default value, or "required" when there is none.
func (d *Descriptor) DefaultText() string {
	v, ok := d.Default.Get()
	if !ok {
		return "required"
	}
	switch v.Kind {
	case KindString:
		return `"` + v.Str + `"`
	case KindDouble:
		return units.Format(v.Double) + d.Unit.CanonicalSuffix()
	}
	return v.String()
}

// attribute stamps the variable name onto err, and the raw token when the
// error does not carry a more specific one.
func (d *Descriptor) attribute(err error, raw string) error {
	bi, ok := err.(*BadInputError)
	if !ok {
		return newBadInput(ErrCodeSyntax, raw, "%s", err.Error()).WithVar(d.Name).WithCause(err)
	}
	if bi.Var != "" {
		return bi
	}
	if bi.Token == "" {
		bi.Token = raw
	}
	return bi.WithVar(d.Name)
}

var boolSpellings = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
	"false": false, "0": false, "no": false, "off": false,
}

func parseBool(raw string) (bool, error) {
	b, ok := boolSpellings[strings.TrimSpace(raw)]
	if !ok {
		return false, newBadInput(ErrCodeSyntax, raw, "expected a boolean (true, false, 1, 0, yes, no, on, off)")
	}
	return b, nil
}

func checkVector(v Vector) error {
	if !v.IsFinite() {
		return newBadInput(ErrCodeStructure, v.String(), "infinities or too large values in vector")
	}
	if !(v.Mag2() > 0) {
		return newBadInput(ErrCodeStructure, v.String(), "null vector provided")
	}
	return nil
}

// ParseVector parses three comma-separated numbers. Structural checks (null
// or non-finite vectors) are done by Descriptor.Validate.
func ParseVector(s string) (Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vector{}, newBadInput(ErrCodeSyntax, s, "expected three comma-separated numbers, got %d field(s)", len(parts))
	}
	var v Vector
	for i, p := range parts {
		f, err := units.ParseNumber(p)
		if err != nil {
			return Vector{}, newBadInput(ErrCodeSyntax, s, "component %d (%q) is not a number", i+1, strings.TrimSpace(p)).WithCause(err)
		}
		v[i] = f
	}
	return v, nil
}

// ParseOrientDir parses "@crys:c1,c2,c3@lab:l1,l2,l3" or
// "@crys_hkl:c1,c2,c3@lab:l1,l2,l3".
func ParseOrientDir(s string) (OrientDir, error) {
	tok := strings.TrimSpace(s)
	if !strings.HasPrefix(tok, "@") {
		return OrientDir{}, newBadInput(ErrCodeSyntax, s,
			`orientation must have the form "@crys:c1,c2,c3@lab:l1,l2,l3" or "@crys_hkl:c1,c2,c3@lab:l1,l2,l3"`)
	}
	parts := strings.Split(tok[1:], "@")

	var od OrientDir
	var haveLab bool
	for _, part := range parts {
		p := strings.TrimSpace(part)
		key, body, ok := strings.Cut(p, ":")
		key = strings.TrimSpace(key)
		switch {
		case !ok:
			return OrientDir{}, newBadInput(ErrCodeSyntax, s, "malformed part %q (missing ':')", p)
		case key == "crys" || key == "crys_hkl":
			if od.Frame != FrameMissing {
				return OrientDir{}, newBadInput(ErrCodeSyntax, s, "more than one crystal frame direction (crys or crys_hkl) specified")
			}
			if haveLab {
				return OrientDir{}, newBadInput(ErrCodeSyntax, s, "the %s part must precede the lab part", key)
			}
			vec, err := ParseVector(body)
			if err != nil {
				return OrientDir{}, newBadInput(ErrCodeSyntax, s, "malformed %s part: %s", key, reasonOf(err)).WithCause(err)
			}
			od.Crystal = vec
			od.Frame = FrameAxis
			if key == "crys_hkl" {
				od.Frame = FrameHKL
			}
		case key == "lab":
			if haveLab {
				return OrientDir{}, newBadInput(ErrCodeSyntax, s, "more than one lab direction specified")
			}
			vec, err := ParseVector(body)
			if err != nil {
				return OrientDir{}, newBadInput(ErrCodeSyntax, s, "malformed lab part: %s", reasonOf(err)).WithCause(err)
			}
			od.Lab = vec
			haveLab = true
		default:
			return OrientDir{}, newBadInput(ErrCodeSyntax, s, "unknown part %q (expected crys, crys_hkl or lab)", key)
		}
	}
	if od.Frame == FrameMissing {
		return OrientDir{}, newBadInput(ErrCodeSyntax, s, "missing crystal frame direction (crys or crys_hkl part)")
	}
	if !haveLab {
		return OrientDir{}, newBadInput(ErrCodeSyntax, s, "missing lab frame direction (lab part)")
	}
	if err := od.Validate(); err != nil {
		bi := err.(*BadInputError)
		bi.Token = s
		return OrientDir{}, bi
	}
	return od, nil
}

func reasonOf(err error) string {
	if bi, ok := err.(*BadInputError); ok {
		return bi.Reason
	}
	return err.Error()
}
