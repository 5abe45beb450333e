package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nccfg/nccfg/pkg/cfg"
	"github.com/nccfg/nccfg/pkg/units"
)

// Loader reads configuration documents and assembles cfg.Config values.
type Loader struct {
	registry  *Registry
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLoader creates a loader with a fresh schema registry.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		registry:  NewRegistry(),
		validator: validator.New(),
		logger:    logger.With().Str("component", "schema").Logger(),
	}
}

// Registry returns the schema registry used by the loader.
func (l *Loader) Registry() *Registry {
	return l.registry
}

// DetectFormat derives the document format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("unsupported document extension %q (expected .yaml, .yml, .json, .cue or .hcl)", filepath.Ext(path))
}

// LoadFile reads and validates one document. The returned error covers I/O
// and format detection only; document problems are reported in Errors.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadedDocument, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.LoadBytes(ctx, path, format, data)
}

// LoadBytes validates a document held in memory. source is used in error
// locations.
func (l *Loader) LoadBytes(ctx context.Context, source string, format Format, data []byte) (*LoadedDocument, error) {
	res := &LoadedDocument{
		Source:   source,
		Format:   format,
		LoadedAt: time.Now(),
	}

	var (
		doc       Document
		positions map[string]position
		errs      []ValidationError
	)
	switch format {
	case FormatYAML, FormatJSON:
		doc, positions, errs = l.decodeYAML(source, data)
	case FormatCUE:
		doc, positions, errs = l.decodeCUE(source, data)
	case FormatHCL:
		doc, positions, errs = l.decodeHCL(source, data)
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	if len(errs) > 0 {
		res.Errors = errs
		l.logger.Debug().Str("source", source).Int("errors", len(errs)).Msg("Document rejected by schema")
		return res, nil
	}

	if err := l.validator.Struct(doc); err != nil {
		ve := ValidationError{File: source, Path: "datasource", Message: err.Error(), Code: cfg.ErrCodeSyntax}
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 && verrs[0].Tag() == "excludesall" {
			ve.Message = fmt.Sprintf("datasource %q must not contain ';' or '='", doc.DataSource)
		}
		if p, ok := positions["datasource"]; ok {
			ve.Line, ve.Column = p.line, p.column
		}
		res.Errors = append(res.Errors, ve)
		return res, nil
	}

	c, errs := BuildConfig(doc)
	for i := range errs {
		if errs[i].File == "" {
			errs[i].File = source
		}
		if p, ok := positions[errs[i].Path]; ok {
			errs[i].Line, errs[i].Column = p.line, p.column
		}
	}
	if len(errs) > 0 {
		res.Errors = errs
		return res, nil
	}
	res.Config = c

	l.logger.Debug().
		Str("source", source).
		Str("format", string(format)).
		Int("variables", len(doc.Variables)).
		Msg("Document loaded")
	return res, nil
}

type position struct {
	line, column int
}

func (l *Loader) decodeYAML(source string, data []byte) (Document, map[string]position, []ValidationError) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, nil, []ValidationError{{File: source, Message: fmt.Sprintf("failed to parse document: %v", err)}}
	}
	var doc Document
	if err := root.Decode(&doc); err != nil {
		return Document{}, nil, []ValidationError{{File: source, Message: fmt.Sprintf("failed to decode document: %v", err)}}
	}
	positions := yamlPositions(&root)
	if errs := l.checkSchema(source, doc, positions); len(errs) > 0 {
		return Document{}, nil, errs
	}
	return doc, positions, nil
}

// checkSchema validates a decoded document against the configuration
// schema.
func (l *Loader) checkSchema(source string, doc Document, positions map[string]position) []ValidationError {
	var errs []ValidationError
	_ = l.registry.Evaluate(func(cc *cue.Context) error {
		val := cc.Encode(doc)
		if err := val.Err(); err != nil {
			errs = []ValidationError{{File: source, Message: fmt.Sprintf("failed to encode document: %v", err)}}
			return nil
		}
		if _, err := l.registry.unify(val); err != nil {
			errs = convertCUEErrors(err)
		}
		return nil
	})
	for i := range errs {
		errs[i].File = source
		if p, ok := positions[errs[i].Path]; ok {
			errs[i].Line, errs[i].Column = p.line, p.column
		}
	}
	return errs
}

// yamlPositions maps "datasource", "variables" and "variables.<name>" to
// the location of the corresponding key.
func yamlPositions(root *yaml.Node) map[string]position {
	out := make(map[string]position)
	n := root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		out[key.Value] = position{key.Line, key.Column}
		if key.Value != "variables" || val.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(val.Content); j += 2 {
			vk := val.Content[j]
			out["variables."+vk.Value] = position{vk.Line, vk.Column}
		}
	}
	return out
}

func (l *Loader) decodeCUE(source string, data []byte) (Document, map[string]position, []ValidationError) {
	var (
		doc       Document
		positions = make(map[string]position)
		errs      []ValidationError
	)
	_ = l.registry.Evaluate(func(cc *cue.Context) error {
		val := cc.CompileBytes(data, cue.Filename(source))
		if err := val.Err(); err != nil {
			errs = convertCUEErrors(err)
			return nil
		}
		unified, err := l.registry.unify(val)
		if err != nil {
			errs = convertCUEErrors(err)
			return nil
		}
		if err := unified.Decode(&doc); err != nil {
			errs = []ValidationError{{File: source, Message: fmt.Sprintf("failed to decode document: %v", err)}}
			return nil
		}
		for name := range doc.Variables {
			p := unified.LookupPath(cue.ParsePath("variables." + name)).Pos()
			if p.IsValid() {
				positions["variables."+name] = position{p.Line(), p.Column()}
			}
		}
		return nil
	})
	if len(errs) > 0 {
		return Document{}, nil, errs
	}
	return doc, positions, nil
}

// convertCUEErrors converts CUE errors to a ValidationError slice.
func convertCUEErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range errors.Errors(err) {
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: errors.Details(e, nil),
		}
		if pos := errors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		out = append(out, ve)
	}
	return out
}

// BuildConfig assembles a configuration from a schema-valid document. Every
// variable is parsed even after a failure, so that all value errors are
// returned together. Dependency violations are reported as well.
func BuildConfig(doc Document) (*cfg.Config, []ValidationError) {
	c := cfg.NewConfig(doc.DataSource)
	var errs []ValidationError

	names := make([]string, 0, len(doc.Variables))
	for name := range doc.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := "variables." + name
		tok, err := ValueToken(doc.Variables[name])
		if err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error(), Code: cfg.ErrCodeSyntax})
			continue
		}
		if err := c.SetRaw(name, tok); err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error(), Code: cfg.CodeOf(err), Err: err})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := c.CheckConsistency(); err != nil {
		for _, e := range unwrapAll(err) {
			var path string
			if bi, ok := e.(*cfg.BadInputError); ok {
				path = "variables." + bi.Var
			}
			errs = append(errs, ValidationError{Path: path, Message: e.Error(), Code: cfg.CodeOf(e), Err: e})
		}
		return nil, errs
	}
	return c, nil
}

func unwrapAll(err error) []error {
	if u, ok := err.(interface{ WrappedErrors() []error }); ok {
		return u.WrappedErrors()
	}
	return []error{err}
}

// ValueToken renders a decoded document value as the text token accepted by
// cfg. Lists of three numbers become vectors, {crys|crys_hkl, lab} maps
// become orientation directions.
func ValueToken(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return units.Format(x), nil
	case []interface{}:
		return vectorToken(x)
	case map[string]interface{}:
		return orientToken(x)
	case nil:
		return "", fmt.Errorf("missing value")
	}
	return fmt.Sprint(v), nil
}

func vectorToken(list []interface{}) (string, error) {
	if len(list) != 3 {
		return "", fmt.Errorf("expected a list of three numbers, got %d element(s)", len(list))
	}
	parts := make([]string, 3)
	for i, e := range list {
		switch e.(type) {
		case string, bool, []interface{}, map[string]interface{}, nil:
			return "", fmt.Errorf("vector component %d is not a number", i+1)
		}
		s, err := ValueToken(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ","), nil
}

func orientToken(m map[string]interface{}) (string, error) {
	var crysKey string
	for _, k := range []string{"crys", "crys_hkl"} {
		if _, ok := m[k]; ok {
			if crysKey != "" {
				return "", fmt.Errorf("both crys and crys_hkl given")
			}
			crysKey = k
		}
	}
	if crysKey == "" {
		return "", fmt.Errorf("missing crys or crys_hkl")
	}
	lab, ok := m["lab"]
	if !ok {
		return "", fmt.Errorf("missing lab")
	}
	crys, err := listToken(m[crysKey])
	if err != nil {
		return "", fmt.Errorf("%s: %w", crysKey, err)
	}
	labTok, err := listToken(lab)
	if err != nil {
		return "", fmt.Errorf("lab: %w", err)
	}
	return "@" + crysKey + ":" + crys + "@lab:" + labTok, nil
}

func listToken(v interface{}) (string, error) {
	list, ok := v.([]interface{})
	if !ok {
		return "", fmt.Errorf("expected a list of three numbers")
	}
	return vectorToken(list)
}

// ToDocument converts a configuration to its structured form, holding the
// explicitly set variables. Vectors and orientations are kept as their text
// tokens so that the document re-parses to an equal configuration.
func ToDocument(c *cfg.Config) Document {
	doc := Document{DataSource: c.DataSource}
	ids := c.Explicit()
	if len(ids) == 0 {
		return doc
	}
	doc.Variables = make(map[string]interface{}, len(ids))
	for _, id := range ids {
		v, _ := c.Get(id)
		switch v.Kind {
		case cfg.KindVector, cfg.KindOrientDir:
			doc.Variables[id.Name()] = v.String()
		default:
			doc.Variables[id.Name()] = v.Interface()
		}
	}
	return doc
}
