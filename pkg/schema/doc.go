// Package schema validates structured configuration documents (YAML, JSON,
// CUE or HCL) against a CUE schema generated from the variable registry, and
// converts accepted documents into cfg.Config values.
//
// # Overview
//
// A configuration string such as "Al_sg225.ncmat;temp=20C;vdoslux=2" is
// convenient on a command line but awkward to keep in version control. The
// schema package accepts the same information as a document:
//
//	datasource: Al_sg225.ncmat
//	variables:
//	  temp: 20C
//	  vdoslux: 2
//	  lcaxis: [0, 0, 1]
//	  dir1: {crys_hkl: [0, 0, 1], lab: [0, 0, 1]}
//
// HCL documents carry the variables in a block:
//
//	datasource = "Al_sg225.ncmat"
//	variables {
//	  temp    = "20C"
//	  vdoslux = 2
//	}
//
// Validation runs in two stages. The CUE schema rejects unknown variable
// names and values of the wrong shape, with file and line information. Each
// accepted value is then rendered back to its text token and parsed by
// package cfg, which applies units, ranges and the compound grammars.
//
// # Components
//
// Registry: holds compiled CUE schemas. The "config" schema is generated
// from the registry by Generate and registered at construction.
//
// Loader: reads documents from files or memory and produces *cfg.Config.
//
// # Usage Example
//
//	loader := schema.NewLoader(logger)
//	doc, err := loader.LoadFile(ctx, "pg.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if len(doc.Errors) > 0 {
//	    for _, e := range doc.Errors {
//	        fmt.Println(e)
//	    }
//	}
//	c := doc.Config
package schema
