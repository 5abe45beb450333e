package cfg

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"github.com/nccfg/nccfg/pkg/units"
)

// VarID is a dense handle for a registered variable. IDs follow the
// alphabetical order of variable names and are stable within a build.
type VarID uint32

var (
	registryOnce sync.Once
	registry     []Descriptor
)

// descriptors returns the sorted, validated variable table, building it on
// first use.
func descriptors() []Descriptor {
	registryOnce.Do(func() {
		table := catalog()
		sort.Slice(table, func(i, j int) bool { return table[i].Name < table[j].Name })
		if err := checkTable(table); err != nil {
			panic(fmt.Sprintf("cfg: invalid variable table: %v", err))
		}
		registry = table
	})
	return registry
}

// checkTable enforces the structural invariants of the variable table.
func checkTable(table []Descriptor) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(descriptorLevelCheck, Descriptor{})

	known := make(map[string]bool, len(table))
	for i := range table {
		d := &table[i]
		if i > 0 && table[i-1].Name == d.Name {
			return fmt.Errorf("duplicate variable name %q", d.Name)
		}
		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("variable %q: %w", d.Name, err)
		}
		known[d.Name] = true
	}
	for i := range table {
		for _, dep := range table[i].Requires {
			if !known[dep] {
				return fmt.Errorf("variable %q requires unknown variable %q", table[i].Name, dep)
			}
		}
	}
	return nil
}

// descriptorLevelCheck validates rules spanning several Descriptor fields.
func descriptorLevelCheck(sl validator.StructLevel) {
	d := sl.Current().Interface().(Descriptor)

	numeric := d.Kind == KindDouble || d.Kind == KindInt
	if d.Unit != units.KindNone && !numeric {
		sl.ReportError(d.Unit, "Unit", "Unit", "unit_on_non_numeric", string(d.Kind))
	}
	if def, ok := d.Default.Get(); ok && def.Kind != d.Kind {
		sl.ReportError(def.Kind, "Default", "Default", "default_kind", string(d.Kind))
	}
	if d.KeepMagnitude && d.Kind != KindVector {
		sl.ReportError(d.KeepMagnitude, "KeepMagnitude", "KeepMagnitude", "magnitude_non_vector", "")
	}
}

// Lookup maps a variable name to its identifier.
func Lookup(name string) (VarID, bool) {
	table := descriptors()
	i := sort.Search(len(table), func(i int) bool { return table[i].Name >= name })
	if i < len(table) && table[i].Name == name {
		return VarID(i), true
	}
	return 0, false
}

// MustLookup is like Lookup but panics for unknown names. It is intended for
// package-level constants.
func MustLookup(name string) VarID {
	id, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("cfg: unknown variable %q", name))
	}
	return id
}

// Describe returns the descriptor of id. The returned descriptor must not be
// modified.
func Describe(id VarID) *Descriptor {
	return &descriptors()[id]
}

// NumVars returns the number of registered variables.
func NumVars() int {
	return len(descriptors())
}

// VarIDs returns all identifiers in registry order.
func VarIDs() []VarID {
	ids := make([]VarID, NumVars())
	for i := range ids {
		ids[i] = VarID(i)
	}
	return ids
}

// Names returns all variable names in registry order.
func Names() []string {
	table := descriptors()
	names := make([]string, len(table))
	for i := range table {
		names[i] = table[i].Name
	}
	return names
}

// Name returns the variable name of id.
func (id VarID) Name() string {
	return Describe(id).Name
}

func (id VarID) String() string {
	return id.Name()
}

// LookupError builds the error returned for an unknown variable name,
// suggesting close matches when there are any.
func LookupError(name string) *BadInputError {
	var matches []string
	for _, n := range Names() {
		if name == "" {
			break
		}
		if strings.HasPrefix(n, name) || strings.HasPrefix(name, n) || levenshtein.ComputeDistance(n, name) <= 2 {
			matches = append(matches, n)
		}
	}
	err := newBadInput(ErrCodeUnknownVariable, name, "unknown parameter name")
	if len(matches) > 0 {
		err.Reason += " (did you mean: " + strings.Join(matches, ", ") + "?)"
	}
	return err
}

// Identifiers of the registered variables.
var (
	VarAbsnFactory = MustLookup("absnfactory")
	VarAtomDB      = MustLookup("atomdb")
	VarCohElas     = MustLookup("coh_elas")
	VarDcutoff     = MustLookup("dcutoff")
	VarDcutoffUp   = MustLookup("dcutoffup")
	VarDir1        = MustLookup("dir1")
	VarDir2        = MustLookup("dir2")
	VarDirTol      = MustLookup("dirtol")
	VarIncohElas   = MustLookup("incoh_elas")
	VarInelas      = MustLookup("inelas")
	VarInfoFactory = MustLookup("infofactory")
	VarLcAxis      = MustLookup("lcaxis")
	VarLcMode      = MustLookup("lcmode")
	VarMos         = MustLookup("mos")
	VarMosPrec     = MustLookup("mosprec")
	VarSans        = MustLookup("sans")
	VarScatFactory = MustLookup("scatfactory")
	VarScCutoff    = MustLookup("sccutoff")
	VarTemp        = MustLookup("temp")
	VarVdosLux     = MustLookup("vdoslux")
)
