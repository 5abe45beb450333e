// Package cfg implements the typed configuration variables of the material
// modelling engine.
//
// # Overview
//
// A fixed registry of variable descriptors describes every parameter that
// can appear in a configuration string: its name, functional group, value
// type, physical unit, default and validation rules. The registry is built
// once on first use and is read-only afterwards, so every function in this
// package may be called concurrently without synchronization.
//
// # Components
//
// Registry: Lookup maps a name to a dense VarID (alphabetical order),
// Describe maps a VarID back to its Descriptor. Construction checks that the
// table is duplicate free and structurally valid and panics otherwise.
//
// Parsing: Descriptor.Parse turns a raw token into a validated Value. Numeric
// tokens may carry a unit suffix ("0.5deg", "2Aa", "20C"). A few variables
// canonicalise their input: dcutoff=-1 is stored as 0 and the inelas aliases
// "none", "false" and "sterile" are stored as "0".
//
// Compound values: ParseOrientDir handles "@crys:..@lab:.." directions,
// ParseFactNameRequest the "name@!excluded" factory requests and
// ParseAtomDB the "line@line" atom database overrides.
//
// Configurations: ParseCfgString assembles a Config from
// "datasource;name=value;...", and Config.CheckConsistency reports every
// missing dependency (e.g. mos without dir1 and dir2) in one error.
//
// Documentation: DumpVarList renders the registry as short text, full text,
// JSON or YAML.
//
// # Usage Example
//
//	c, err := cfg.ParseCfgString("Al_sg225.ncmat;temp=20C;dcutoff=0.5Aa")
//	if err != nil {
//	    return err // a *cfg.BadInputError, safe to show to users verbatim
//	}
//	if err := c.CheckConsistency(); err != nil {
//	    return err
//	}
//	fmt.Println(c.Temperature()) // 293.15K
//
// # Error Handling
//
// Every failure is a *BadInputError naming the variable, the offending token
// and the reason. Use errors.Is(err, cfg.ErrBadInput) or IsBadInput to test
// for it, and CodeOf to classify it.
//
// # Thread Safety
//
// The registry and all parse functions are safe for concurrent use. A Config
// value is owned by its creator and must not be mutated concurrently.
//
// A negative lcmode is accepted like any other value in range. It selects a
// model that is unsafe for multi-threaded use, but that is a property of the
// physics objects built from the configuration; package policy reports it
// as an advisory.
package cfg
