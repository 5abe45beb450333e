package cfg

import (
	"math"
	"strings"

	"github.com/nccfg/nccfg/pkg/units"
)

// factoryDescription renders the shared description of the *factory
// variables for the given category of objects.
func factoryDescription(category string) string {
	return "This parameter can be used by experts to bypass the usual" +
		" factory selection logic for " + category + " objects." +
		" A factory can be selected by providing its name, or" +
		" excluded by prefixing the name with \"!\". Multiple" +
		" entries must be separated by an \"@\" sign (obviously at most" +
		" one non-excluded entry can appear)."
}

func rangeErr(format string, args ...interface{}) error {
	return newBadInput(ErrCodeRange, "", format, args...)
}

// catalog returns the variable descriptors. Order is irrelevant here, the
// registry sorts them by name.
func catalog() []Descriptor {
	return []Descriptor{
		{
			Name:  "temp",
			Group: GroupInfo,
			Kind:  KindDouble,
			Unit:  units.KindTemperature,
			Description: "Temperature of material in Kelvin. The special value of -1.0 implies 293.15K unless" +
				" input data is only valid at a specific temperature, in which case that temperature is used instead.",
			RangeDoc: "-1 (automatic), or [0.001K, 1e6K]",
			Default:  WithDefault(DoubleValue(-1)),
			checkDouble: func(v float64) (float64, error) {
				if !(v == -1 || (v >= 0.001 && v <= 1e6)) {
					return 0, rangeErr("out of range temperature value %s (valid temperatures must be in the range 0.001K .. 1000000K)",
						units.Temperature(v))
				}
				return v, nil
			},
		},
		{
			Name:  "dcutoff",
			Group: GroupInfo,
			Kind:  KindDouble,
			Unit:  units.KindLength,
			Description: "Crystal planes with d-spacing below this value will be ignored. The special value of" +
				" 0 implies an automatic selection of this threshold. Note that for backwards compatibility -1 is treated as 0 (for now).",
			RangeDoc: "0 (automatic), or [1e-3Aa, 1e5Aa]; -1 is accepted as an alias of 0",
			Default:  WithDefault(DoubleValue(0)),
			checkDouble: func(v float64) (float64, error) {
				if v == -1 || v == 0 {
					// Legacy spelling of "automatic".
					return 0, nil
				}
				if !(v > 0) {
					return 0, rangeErr("dcutoff must be >=0.0")
				}
				if !(v >= 1e-3 && v <= 1e5) {
					return 0, rangeErr("dcutoff must be 0 (for automatic selection), or in range [1e-3,1e5] (Aa)")
				}
				return v, nil
			},
		},
		{
			Name:        "dcutoffup",
			Group:       GroupInfo,
			Kind:        KindDouble,
			Unit:        units.KindLength,
			Description: "Crystal planes with d-spacing above this value will be ignored.",
			RangeDoc:    ">=0Aa (inf allowed)",
			Default:     WithDefault(DoubleValue(math.Inf(1))),
			checkDouble: nonNegative("dcutoffup"),
		},
		{
			Name:  "sccutoff",
			Group: GroupScatterExtra,
			Kind:  KindDouble,
			Unit:  units.KindLength,
			Description: "Single-crystal modelling cutoff. Crystal planes with d-spacing below this" +
				" value will be approximated as having infinite mosaicity (as in a powder)." +
				" A value of 0 naturally disables this approximation entirely.",
			RangeDoc:    ">=0Aa",
			Default:     WithDefault(DoubleValue(0.4)),
			checkDouble: nonNegative("sccutoff"),
		},
		{
			Name:  "mos",
			Group: GroupScatterExtra,
			Kind:  KindDouble,
			Unit:  units.KindAngle,
			Description: "Mosaic FWHM spread in mosaic single crystals." +
				" When this parameter is set, the parameters dir1 and dir2 must also be provided.",
			RangeDoc: "(0, pi/2] rad",
			Requires: []string{"dir1", "dir2"},
			Default:  NoDefault(),
			checkDouble: func(v float64) (float64, error) {
				if !(v > 0) || v > math.Pi/2 {
					return 0, rangeErr("mos must be in range (0.0,pi/2]")
				}
				return v, nil
			},
		},
		{
			Name:  "dir1",
			Group: GroupScatterExtra,
			Kind:  KindOrientDir,
			Description: "Primary orientation axis of a single crystal. This is specified by indicating the direction of given axis" +
				" in both the crystal (c1,c2,c3) and lab frames (l1,l2,l3), using the format \"@crys:c1,c2,c3@lab:l1,l2,l3\"." +
				" The direction in the crystal frame can alternatively be provided in HKL space (indicating the normal of a" +
				" given HKL plane), by using \"@crys_hkl:\" instead of \"@crys:\": \"dir1=@crys_hkl:c1,c2,c3@lab:l1,l2,l3\"." +
				" When this parameter is set, the parameters mos and dir2 must also be provided.",
			Requires: []string{"dir2", "mos"},
			Default:  NoDefault(),
		},
		{
			Name:  "dir2",
			Group: GroupScatterExtra,
			Kind:  KindOrientDir,
			Description: "Secondary orientation axis of a single crystal. This is specified using the same syntax as for the dir1 parameter." +
				" In general the opening angle between the dir1 and dir2 vectors must be nonzero and identical in the crystal" +
				" and lab frames, but a discrepancy up to the value of the dirtol parameter is allowed. In any case, the" +
				" components of the dir2 vectors parallel to the dir1 vectors are ignored." +
				" When this parameter is set, the parameters mos and dir1 must also be provided.",
			Requires: []string{"dir1", "mos"},
			Default:  NoDefault(),
		},
		{
			Name:  "dirtol",
			Group: GroupScatterExtra,
			Kind:  KindDouble,
			Unit:  units.KindAngle,
			Description: "Tolerance parameter for the secondary direction of the single crystal orientation" +
				" (see the dir2 parameter description for more information)." +
				" A value of 180deg can be used to easily set up a single crystal monochromator" +
				" where one is only interested in the primary direction." +
				" When this parameter is set, the parameters mos, dir1, and dir2 must also be provided.",
			RangeDoc: "(0, pi] rad",
			Requires: []string{"dir1", "dir2", "mos"},
			Default:  WithDefault(DoubleValue(1e-4)),
			checkDouble: func(v float64) (float64, error) {
				if !(v > 0 && v <= math.Pi) {
					return 0, rangeErr("dirtol must be in range (0.0,pi]")
				}
				return v, nil
			},
		},
		{
			Name:        "mosprec",
			Group:       GroupScatterExtra,
			Kind:        KindDouble,
			Unit:        units.KindPureNumber,
			Description: "Approximate relative numerical precision in implementation of mosaic model in single crystals.",
			RangeDoc:    "[1e-7, 1e-1]",
			Default:     WithDefault(DoubleValue(1e-3)),
			checkDouble: func(v float64) (float64, error) {
				if !(v >= 1e-7) || v > 1e-1 {
					return 0, rangeErr("mosprec must be in range [1e-7,1e-1]")
				}
				return v, nil
			},
		},
		{
			Name:  "vdoslux",
			Group: GroupScatterBase,
			Kind:  KindInt,
			Description: "Setting affecting \"luxury\" level when expanding phonon spectrums (VDOS) into scattering kernels." +
				" This primarily impacts the granularity of the kernel and the upper neutron energy (Emax)" +
				" beyond which free-gas extrapolation is used, with implication for memory usage and initialisation time." +
				" Allowed values are:" +
				" 0 (Extremely crude, 100x50 grid, Emax=0.5eV, 0.1MB, 0.02s init)," +
				" 1 (Crude, 200x100 grid, Emax=1eV, 0.5MB, 0.02s init)," +
				" 2 (Decent, 400x200 grid, Emax=3eV, 2MB, 0.08s init)," +
				" 3 (Good, 800x400 grid, Emax=5eV, 8MB, 0.2s init)," +
				" 4 (Very good, 1600x800 grid, Emax=8eV, 30MB, 0.8s init)," +
				" 5 (Overkill, 3200x1600 grid, Emax=12eV, 125MB, 5s init)." +
				" Note that when no actual VDOS input curve is available and one is approximated from a Debye temperature," +
				" the vdoslux level actually used will be 3 less than the one specified in this parameter (but at least 0).",
			RangeDoc: "integer 0..5",
			Default:  WithDefault(IntValue(3)),
			checkInt: func(v int64) (int64, error) {
				if v < 0 || v > 5 {
					return 0, rangeErr("vdoslux must be an integral value from 0 to 5")
				}
				return v, nil
			},
		},
		{
			Name:  "lcaxis",
			Group: GroupScatterExtra,
			Kind:  KindVector,
			Description: "Symmetry axis of anisotropic layered crystals with a layout similar to pyrolytic graphite (PG)." +
				" The axis must be provided in direct lattice coordinates using a format like \"0,0,1\"." +
				" Specifying this parameter along with an orientation (see dir1 and dir2 parameters) will result in" +
				" the appropriate anisotropic single crystal scatter model being used for Bragg diffraction.",
			RangeDoc:      "non-null finite vector",
			Default:       NoDefault(),
			KeepMagnitude: true,
		},
		{
			Name:  "lcmode",
			Group: GroupScatterExtra,
			Kind:  KindInt,
			Description: "Choose which modelling is used for layered crystals like PG" +
				" (ignored unless the lcaxis, dir1, and dir2 parameters are set)." +
				" The default value 0 enables the recommended model, which is both fast and accurate." +
				" A positive value N triggers a very slow but simple reference model, in which N crystallite" +
				" orientations are sampled internally (the model is accurate only when N is very high)." +
				" A negative value -N triggers a different (and multi-thread unsafe!) model in which each" +
				" crossSection call triggers a new selection of N randomly oriented crystallites.",
			RangeDoc: "integer -4000000000..4000000000",
			Default:  WithDefault(IntValue(0)),
			checkInt: func(v int64) (int64, error) {
				const limit = 4000000000
				if v < -limit || v > limit {
					return 0, rangeErr("lcmode must be an integral value from %d to %d", int64(-limit), int64(limit))
				}
				return v, nil
			},
		},
		{
			Name:        "incoh_elas",
			Group:       GroupScatterBase,
			Kind:        KindBool,
			Description: "If enabled, incoherent elastic scattering components will be included for solid materials.",
			Default:     WithDefault(BoolValue(true)),
		},
		{
			Name:  "coh_elas",
			Group: GroupScatterBase,
			Kind:  KindBool,
			Description: "If enabled, coherent elastic components will be included for solid materials." +
				" In the case of crystalline materials this is essentially Bragg diffraction.",
			Default: WithDefault(BoolValue(true)),
		},
		{
			Name:        "sans",
			Group:       GroupScatterBase,
			Kind:        KindBool,
			Description: "Control presence of SANS models. Note that this parameter is primarily added to support future developments.",
			Default:     WithDefault(BoolValue(true)),
		},
		{
			Name:  "inelas",
			Group: GroupScatterBase,
			Kind:  KindString,
			Description: "Influence choice of inelastic scattering models. The default value of \"auto\" leaves the choice" +
				" to the code, and values of \"none\", \"0\", \"false\", or \"sterile\", all disable inelastic scattering." +
				" The standard scatter plugin currently supports additional values: \"external\", \"dyninfo\"," +
				" \"vdosdebye\", and \"freegas\", and internally the \"auto\" mode will simply select the first possible" +
				" of those in the listed order (falling back to \"none\" when nothing is possible). Note that \"external\"" +
				" is only currently supported by .nxs files. The \"dyninfo\" mode will simply base modelling on whatever" +
				" dynamic information is available for each element in the input data. The \"vdosdebye\" and \"freegas\"" +
				" modes overrides this, and force those models for all elements if possible (thus \"inelas=freegas;elas=0\"" +
				" can be used to force a pure free-gas scattering model). The \"external\" mode implies usage of an" +
				" externally provided cross-section curve with an isotropic-elastic scattering model.",
			RangeDoc: "lowercase letters, digits and underscores",
			Default:  WithDefault(StringValue("auto")),
			str2val:  canonicalInelas,
		},
		{
			Name:        "infofactory",
			Group:       GroupInfo,
			Kind:        KindString,
			Description: factoryDescription("material Info"),
			RangeDoc:    "factory request",
			Default:     WithDefault(StringValue("")),
			str2val:     factoryRequestValue("infofactory"),
		},
		{
			Name:        "scatfactory",
			Group:       GroupScatterBase,
			Kind:        KindString,
			Description: factoryDescription("Scatter"),
			RangeDoc:    "factory request",
			Default:     WithDefault(StringValue("")),
			str2val:     factoryRequestValue("scatfactory"),
		},
		{
			Name:        "absnfactory",
			Group:       GroupAbsorption,
			Kind:        KindString,
			Description: factoryDescription("Absorption"),
			RangeDoc:    "factory request",
			Default:     WithDefault(StringValue("")),
			str2val:     factoryRequestValue("absnfactory"),
		},
		{
			Name:  "atomdb",
			Group: GroupInfo,
			Kind:  KindString,
			Description: "Modify atomic definitions if supported (in practice this is unlikely to be supported by anything" +
				" except NCMAT data). The string must follow a syntax identical to that used in @ATOMDB sections of NCMAT" +
				" files, with a few exceptions explained here: First of all, colons (':') are interpreted as whitespace" +
				" characters, which might occasionally be useful (e.g. on the command line). Next, '@' characters play the" +
				" role of line separators. Finally, when used with an NCMAT file that already includes an internal @ATOMDB" +
				" section, the effect will essentially be to combine the two sections by appending the atomdb lines from" +
				" this cfg parameter to the lines already present in the input data. The exception is the case where the" +
				" cfg parameter contains an initial line with the single word \"nodefaults\" the effect of which will always" +
				" be the same as if it was placed on the very first line in the @ATOMDB section (i.e. the internal database" +
				" of elements and isotopes will be ignored).",
			RangeDoc: "atomdb lines separated by '@'",
			Default:  WithDefault(StringValue("")),
			str2val: func(s string) (string, error) {
				norm, err := NormalizeAtomDB(s)
				if err != nil {
					return "", wrapForVar(err, "atomdb", s, "atomdb")
				}
				return norm, nil
			},
		},
	}
}

func nonNegative(name string) func(float64) (float64, error) {
	return func(v float64) (float64, error) {
		if !(v >= 0) {
			return 0, rangeErr("%s must be >=0.0", name)
		}
		return v, nil
	}
}

const inelasCharset = "abcdefghijklmnopqrstuvwxyz_0123456789"

func canonicalInelas(s string) (string, error) {
	if s == "" || strings.Trim(s, inelasCharset) != "" {
		return "", newBadInput(ErrCodeSyntax, s, "must be non-empty and contain only lowercase letters, digits and underscores")
	}
	switch s {
	case "none", "0", "sterile", "false":
		return "0", nil
	}
	return s, nil
}

func factoryRequestValue(name string) func(string) (string, error) {
	return func(s string) (string, error) {
		req, err := ParseFactNameRequest(s)
		if err != nil {
			return "", wrapForVar(err, name, s, "factory request")
		}
		return req.String(), nil
	}
}
