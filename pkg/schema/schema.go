package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/nccfg/nccfg/pkg/cfg"
)

// ConfigSchemaName is the name under which the generated schema is
// registered.
const ConfigSchemaName = "config"

// ConfigDefinition is the CUE definition that documents must satisfy.
const ConfigDefinition = "#Config"

// Registry manages CUE schemas for validation. It is safe for concurrent
// use: all evaluation in its context is serialized.
type Registry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex

	// evalMu guards every compile, unify, validate and decode in ctx.
	// Values of one cue.Context must not be evaluated concurrently.
	evalMu sync.Mutex
}

// NewRegistry creates a registry holding the generated configuration schema.
func NewRegistry() *Registry {
	r := &Registry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	if err := r.RegisterSchema(ConfigSchemaName, Generate()); err != nil {
		// The generated schema is a function of the compiled-in registry.
		panic(err)
	}
	return r
}

// RegisterSchema compiles and registers a CUE schema under name.
func (r *Registry) RegisterSchema(name, src string) error {
	r.evalMu.Lock()
	val := r.ctx.CompileString(src, cue.Filename(name+".cue"))
	err := val.Err()
	r.evalMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (r *Registry) GetSchema(name string) (cue.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	val, ok := r.schemas[name]
	return val, ok
}

// ListSchemas returns the registered schema names, sorted.
func (r *Registry) ListSchemas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// definition returns the #Config definition of the named schema.
func (r *Registry) definition(name string) (cue.Value, error) {
	s, ok := r.GetSchema(name)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", name)
	}
	def := s.LookupPath(cue.ParsePath(ConfigDefinition))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema %s has no %s definition", name, ConfigDefinition)
	}
	return def, nil
}

// Unify unifies val with the configuration definition and validates the
// result as concrete data. val must come from Context and must not be
// evaluated concurrently by the caller; prefer Evaluate.
func (r *Registry) Unify(val cue.Value) (cue.Value, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return r.unify(val)
}

// Evaluate runs fn with exclusive use of the registry's CUE context. Every
// value derived from the context inside fn must be finished with before fn
// returns.
func (r *Registry) Evaluate(fn func(ctx *cue.Context) error) error {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return fn(r.ctx)
}

func (r *Registry) unify(val cue.Value) (cue.Value, error) {
	def, err := r.definition(ConfigSchemaName)
	if err != nil {
		return cue.Value{}, err
	}
	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, err
	}
	return unified, nil
}

// ValidateDocument validates a decoded document against the configuration
// schema.
func (r *Registry) ValidateDocument(ctx context.Context, doc Document) error {
	return r.Evaluate(func(cc *cue.Context) error {
		dataVal := cc.Encode(doc)
		if err := dataVal.Err(); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		if _, err := r.unify(dataVal); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	})
}

// Context returns the CUE context the schemas were compiled in. Values
// unified with the schemas must come from the same context, and must only
// be evaluated inside Evaluate when the registry is shared.
func (r *Registry) Context() *cue.Context {
	return r.ctx
}

// Generate renders the CUE schema for configuration documents from the
// variable registry. Output is deterministic.
func Generate() string {
	var b strings.Builder
	b.WriteString("// Generated from the variable registry.\n\n")
	b.WriteString("#Vector: [number, number, number]\n\n")
	b.WriteString("#OrientDir: string | {crys: #Vector, lab: #Vector} | {crys_hkl: #Vector, lab: #Vector}\n\n")
	b.WriteString(ConfigDefinition + ": {\n")
	b.WriteString("\tdatasource: string & !=\"\"\n")
	b.WriteString("\tvariables?: {\n")
	for _, d := range cfg.Docs().Variables {
		comment := string(d.Type)
		if d.Unit != "" {
			comment += ", " + d.Unit
		}
		if d.Range != "" {
			comment += "; " + d.Range
		}
		fmt.Fprintf(&b, "\t\t// %s\n", comment)
		fmt.Fprintf(&b, "\t\t%s?: %s\n", d.Name, cueType(d.Type))
	}
	b.WriteString("\t}\n")
	b.WriteString("}\n")
	return b.String()
}

func cueType(k cfg.ValueKind) string {
	switch k {
	case cfg.KindDouble:
		// Strings carry unit suffixes ("20C") and "inf".
		return "number | string"
	case cfg.KindInt:
		return "int"
	case cfg.KindBool:
		return "bool | string"
	case cfg.KindVector:
		return "#Vector | string"
	case cfg.KindOrientDir:
		return "#OrientDir"
	}
	return "string"
}
