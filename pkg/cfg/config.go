package cfg

import (
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/nccfg/nccfg/pkg/units"
)

// Config is one assembled configuration: a data source name plus the
// explicitly set variables. It is owned by the caller that parsed it and is
// not safe for concurrent mutation.
type Config struct {
	DataSource string

	values []Value
	set    []bool
}

// NewConfig returns an empty configuration for the given data source.
func NewConfig(dataSource string) *Config {
	n := NumVars()
	return &Config{
		DataSource: dataSource,
		values:     make([]Value, n),
		set:        make([]bool, n),
	}
}

// Assignment is one name=value segment of a configuration string.
type Assignment struct {
	Name string
	Raw  string
}

// TokenizeCfgString splits "datasource;name=value;name=value" into the data
// source and its assignments without parsing the values. Segments are
// trimmed and empty segments ignored.
func TokenizeCfgString(s string) (string, []Assignment, error) {
	segments := strings.Split(s, ";")
	var out []Assignment
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		name, raw, ok := strings.Cut(seg, "=")
		if !ok {
			return "", nil, newBadInput(ErrCodeSyntax, seg, "expected name=value")
		}
		out = append(out, Assignment{Name: strings.TrimSpace(name), Raw: strings.TrimSpace(raw)})
	}
	return strings.TrimSpace(segments[0]), out, nil
}

// ParseCfgString parses "datasource;name=value;name=value". A later
// assignment to the same variable overrides an earlier one.
func ParseCfgString(s string) (*Config, error) {
	ds, assignments, err := TokenizeCfgString(s)
	if err != nil {
		return nil, err
	}
	c := NewConfig(ds)
	for _, a := range assignments {
		if err := c.SetRaw(a.Name, a.Raw); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetRaw parses raw for the named variable and stores the result.
func (c *Config) SetRaw(name, raw string) error {
	id, v, err := ParseByName(name, raw)
	if err != nil {
		return err
	}
	c.values[id], c.set[id] = v, true
	return nil
}

// Set validates a typed value and stores the canonical result.
func (c *Config) Set(id VarID, v Value) error {
	out, err := Describe(id).Validate(v)
	if err != nil {
		return err
	}
	c.values[id], c.set[id] = out, true
	return nil
}

// Unset removes an explicit assignment, restoring the default.
func (c *Config) Unset(id VarID) {
	c.values[id], c.set[id] = Value{}, false
}

// Has reports whether id was explicitly set.
func (c *Config) Has(id VarID) bool {
	return c.set[id]
}

// Get returns the explicitly set value or the default. The boolean is false
// for unset variables without a default.
func (c *Config) Get(id VarID) (Value, bool) {
	if c.set[id] {
		return c.values[id], true
	}
	return Describe(id).Default.Get()
}

// Explicit returns the explicitly set variables in registry order.
func (c *Config) Explicit() []VarID {
	var ids []VarID
	for i, ok := range c.set {
		if ok {
			ids = append(ids, VarID(i))
		}
	}
	return ids
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	return &Config{
		DataSource: c.DataSource,
		values:     append([]Value(nil), c.values...),
		set:        append([]bool(nil), c.set...),
	}
}

// String renders the configuration string: the data source followed by the
// explicitly set variables in registry order.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.DataSource)
	for _, id := range c.Explicit() {
		b.WriteString(";" + id.Name() + "=" + c.values[id].String())
	}
	return b.String()
}

// CheckConsistency verifies the dependencies declared between variables and
// reports every violation at once. The returned error, if any, is a
// *multierror.Error wrapping one BadInputError per missing dependency.
func (c *Config) CheckConsistency() error {
	var result *multierror.Error
	for _, id := range c.Explicit() {
		d := Describe(id)
		for _, dep := range d.Requires {
			if c.set[MustLookup(dep)] {
				continue
			}
			result = multierror.Append(result, &BadInputError{
				Var:    d.Name,
				Token:  c.values[id].String(),
				Code:   ErrCodeDependency,
				Reason: "when " + d.Name + " is set, " + dep + " must also be provided",
			})
		}
	}
	return result.ErrorOrNil()
}

// Typed accessors. They return the explicit value or the default, and panic
// only if called on a variable of a different kind.

func (c *Config) double(id VarID) float64 {
	v, _ := c.Get(id)
	return v.Double
}

// Temperature returns the temperature, or -1K for automatic.
func (c *Config) Temperature() units.Temperature { return units.Temperature(c.double(VarTemp)) }

// Dcutoff returns the lower d-spacing cutoff, 0 meaning automatic.
func (c *Config) Dcutoff() units.Length { return units.Length(c.double(VarDcutoff)) }

// DcutoffUp returns the upper d-spacing cutoff.
func (c *Config) DcutoffUp() units.Length { return units.Length(c.double(VarDcutoffUp)) }

// ScCutoff returns the single-crystal modelling cutoff.
func (c *Config) ScCutoff() units.Length { return units.Length(c.double(VarScCutoff)) }

// DirTol returns the orientation tolerance.
func (c *Config) DirTol() units.Angle { return units.Angle(c.double(VarDirTol)) }

// MosPrec returns the mosaic model precision.
func (c *Config) MosPrec() float64 { return c.double(VarMosPrec) }

// Mosaicity returns the mosaic spread and whether it is set.
func (c *Config) Mosaicity() (units.Angle, bool) {
	v, ok := c.Get(VarMos)
	return units.Angle(v.Double), ok
}

// Orientation returns dir1 and dir2 and whether both are set.
func (c *Config) Orientation() (OrientDir, OrientDir, bool) {
	d1, ok1 := c.Get(VarDir1)
	d2, ok2 := c.Get(VarDir2)
	return d1.Dir, d2.Dir, ok1 && ok2
}

// IsSingleCrystal reports whether an orientation has been configured.
func (c *Config) IsSingleCrystal() bool {
	return c.Has(VarMos) || c.Has(VarDir1) || c.Has(VarDir2)
}

// LcAxis returns the layered-crystal axis and whether it is set.
func (c *Config) LcAxis() (Vector, bool) {
	v, ok := c.Get(VarLcAxis)
	return v.Vec, ok
}

// IsLayeredCrystal reports whether the layered crystal model applies.
func (c *Config) IsLayeredCrystal() bool {
	_, ok := c.LcAxis()
	return ok && c.IsSingleCrystal()
}

// LcMode returns the layered crystal modelling mode. Negative values select
// a model that is not safe for concurrent use by the physics layer; this
// package only carries the value.
func (c *Config) LcMode() int64 {
	v, _ := c.Get(VarLcMode)
	return v.Int
}

// VdosLux returns the VDOS expansion luxury level.
func (c *Config) VdosLux() int64 {
	v, _ := c.Get(VarVdosLux)
	return v.Int
}

// VdosLuxForDebye returns the luxury level used when the VDOS is derived
// from a Debye temperature: three less than VdosLux, but at least zero.
func (c *Config) VdosLuxForDebye() int64 {
	return int64(math.Max(0, float64(c.VdosLux()-3)))
}

func (c *Config) flag(id VarID) bool {
	v, _ := c.Get(id)
	return v.Bool
}

// IncohElas reports whether incoherent elastic scattering is enabled.
func (c *Config) IncohElas() bool { return c.flag(VarIncohElas) }

// CohElas reports whether coherent elastic scattering is enabled.
func (c *Config) CohElas() bool { return c.flag(VarCohElas) }

// SANS reports whether SANS models are enabled.
func (c *Config) SANS() bool { return c.flag(VarSans) }

// Inelas returns the canonical inelastic model choice; "0" means disabled.
func (c *Config) Inelas() string {
	v, _ := c.Get(VarInelas)
	return v.Str
}

// InelasDisabled reports whether inelastic scattering was switched off.
func (c *Config) InelasDisabled() bool { return c.Inelas() == "0" }

// FactoryRequest returns the parsed request of one of the *factory
// variables. Stored values are canonical so parsing can not fail.
func (c *Config) FactoryRequest(id VarID) FactNameRequest {
	v, _ := c.Get(id)
	req, err := ParseFactNameRequest(v.Str)
	if err != nil {
		panic("cfg: stored factory request is not canonical: " + err.Error())
	}
	return req
}

// AtomDB returns the normalised atomdb override lines.
func (c *Config) AtomDB() []string {
	v, _ := c.Get(VarAtomDB)
	if v.Str == "" {
		return nil
	}
	return strings.Split(v.Str, "@")
}
