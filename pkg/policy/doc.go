// Package policy evaluates Rego policies against assembled configurations
// using Open Policy Agent (OPA).
//
// Parsing a configuration only checks each variable on its own and the
// declared dependencies between them. Policies go further and report
// settings that are valid but probably unintended: a layered crystal model
// that is ignored because no orientation is set, a negative lcmode that is
// not safe for multi-threaded use, cutoffs that exclude every crystal plane.
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c, _ := cfg.ParseCfgString("pg.ncmat;lcaxis=0,0,1")
//	result, err := eng.Evaluate(ctx, c, &policy.Context{Operation: "check"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range result.Findings {
//	    fmt.Printf("[%s] %s: %s\n", f.Severity, f.Variable, f.Message)
//	}
//
// # Built-in Policies
//
//  1. layered-crystal - lcmode and lcaxis settings
//  2. dspacing-cutoffs - dcutoff, dcutoffup and sccutoff
//  3. scattering-components - disabled components, VDOS expansion cost
//  4. expert-overrides - factory requests and atomdb without defaults
//
// # Custom Policies
//
// Policies are Rego modules with a deny set. The input document is:
//
//	{
//	  "config": {
//	    "datasource": "pg.ncmat",
//	    "explicit": ["lcaxis"],
//	    "values": {"temp": -1, "dcutoffup": "inf", "lcaxis": [0, 0, 1], ...},
//	    "single_crystal": false,
//	    "layered_crystal": false
//	  },
//	  "context": {"check_id": "...", "operation": "check", "timestamp": "..."}
//	}
//
// Values hold the effective value of each variable (explicit or default) in
// canonical units. Deny elements are strings or objects:
//
//	package custom.temperature
//
//	import rego.v1
//
//	deny contains violation if {
//	    t := input.config.values.temp
//	    t > 1000
//	    violation := {
//	        "message": sprintf("temp=%v is unusually high", [t]),
//	        "severity": "warning",
//	        "variable": "temp",
//	    }
//	}
//
// Policies load from .rego files, or from .json and .yaml definitions
// carrying name, description, severity, enabled and rego fields.
//
// # Hot Reload
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, func(policies []policy.Policy) error {
//	    return eng.ReplaceLoaded(ctx, policies)
//	})
package policy
