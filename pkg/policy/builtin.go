package policy

// BuiltinPolicies returns the policies compiled into the binary. They
// produce advisories about configurations that parse but are likely to be
// unintended.
func BuiltinPolicies() []Policy {
	return []Policy{
		layeredCrystalPolicy(),
		dspacingPolicy(),
		scatteringComponentsPolicy(),
		expertOverridesPolicy(),
	}
}

func layeredCrystalPolicy() Policy {
	return Policy{
		Name:        "layered-crystal",
		Description: "Flags layered crystal settings that are ignored, slow, or unsafe for multi-threaded use",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"single-crystal", "threading"},
		Rego: `package nccfg.policies.layered

import rego.v1

deny contains violation if {
	mode := input.config.values.lcmode
	mode < 0
	violation := {
		"message": sprintf("lcmode=%v selects a model that reselects crystallites on every cross section call and is not safe for multi-threaded use", [mode]),
		"severity": "warning",
		"variable": "lcmode",
		"remediation": "use lcmode=0 unless the physics objects are only used from a single thread",
	}
}

deny contains violation if {
	mode := input.config.values.lcmode
	mode > 0
	violation := {
		"message": sprintf("lcmode=%v selects the slow reference model, which is accurate only for a very large number of crystallites", [mode]),
		"severity": "info",
		"variable": "lcmode",
	}
}

deny contains violation if {
	"lcmode" in input.config.explicit
	not input.config.layered_crystal
	violation := {
		"message": "lcmode is ignored unless lcaxis, dir1 and dir2 are set",
		"severity": "info",
		"variable": "lcmode",
	}
}

deny contains violation if {
	"lcaxis" in input.config.explicit
	not input.config.single_crystal
	violation := {
		"message": "lcaxis has no effect without a single crystal orientation (mos, dir1 and dir2)",
		"severity": "warning",
		"variable": "lcaxis",
		"remediation": "set mos, dir1 and dir2, or remove lcaxis",
	}
}`,
	}
}

func dspacingPolicy() Policy {
	return Policy{
		Name:        "dspacing-cutoffs",
		Description: "Checks that the d-spacing cutoffs leave a non-empty range of crystal planes",
		Severity:    SeverityError,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"bragg"},
		Rego: `package nccfg.policies.dspacing

import rego.v1

deny contains violation if {
	lo := input.config.values.dcutoff
	hi := input.config.values.dcutoffup
	is_number(hi)
	lo > 0
	hi <= lo
	violation := {
		"message": sprintf("dcutoffup (%vAa) does not exceed dcutoff (%vAa), no crystal planes can be selected", [hi, lo]),
		"severity": "error",
		"variable": "dcutoffup",
	}
}

deny contains violation if {
	"sccutoff" in input.config.explicit
	not input.config.single_crystal
	violation := {
		"message": "sccutoff only affects single crystals and is ignored here",
		"severity": "info",
		"variable": "sccutoff",
	}
}`,
	}
}

func scatteringComponentsPolicy() Policy {
	return Policy{
		Name:        "scattering-components",
		Description: "Reports disabled scattering components and costly VDOS expansion settings",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"scattering", "performance"},
		Rego: `package nccfg.policies.components

import rego.v1

deny contains violation if {
	v := input.config.values
	v.inelas == "0"
	v.coh_elas == false
	v.incoh_elas == false
	v.sans == false
	violation := {
		"message": "all scattering components are disabled, only absorption will be modelled",
		"severity": "warning",
		"variable": "inelas",
	}
}

deny contains violation if {
	input.config.values.vdoslux == 5
	violation := {
		"message": "vdoslux=5 expands each VDOS into a 3200x1600 kernel (about 125MB and 5s of initialisation)",
		"severity": "info",
		"variable": "vdoslux",
		"remediation": "vdoslux=3 or 4 is sufficient for most purposes",
	}
}

deny contains violation if {
	"vdoslux" in input.config.explicit
	input.config.values.inelas == "0"
	violation := {
		"message": "vdoslux has no effect when inelastic scattering is disabled",
		"severity": "info",
		"variable": "vdoslux",
	}
}`,
	}
}

func expertOverridesPolicy() Policy {
	return Policy{
		Name:        "expert-overrides",
		Description: "Points out expert options that bypass the usual factory selection or the built-in atom data",
		Severity:    SeverityInfo,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"factories", "atomdb"},
		Rego: `package nccfg.policies.expert

import rego.v1

deny contains violation if {
	some name in ["infofactory", "scatfactory", "absnfactory"]
	value := input.config.values[name]
	value != ""
	violation := {
		"message": sprintf("factory selection is overridden (%s=%s)", [name, value]),
		"severity": "info",
		"variable": name,
	}
}

deny contains violation if {
	startswith(input.config.values.atomdb, "nodefaults")
	violation := {
		"message": "the built-in atom database is disabled, every element in the material must be defined in atomdb or the input data",
		"severity": "info",
		"variable": "atomdb",
	}
}`,
	}
}
