package schema

import (
	"fmt"
	"time"

	"github.com/nccfg/nccfg/pkg/cfg"
)

// Document is the structured form of one configuration.
type Document struct {
	// DataSource names the material data the configuration applies to. It
	// becomes the first segment of the configuration string, so it can not
	// contain the separators ';' and '='.
	DataSource string `json:"datasource" yaml:"datasource" validate:"required,excludesall=;="`

	// Variables maps variable names to values. Values are numbers, booleans,
	// strings with optional unit suffixes, 3-element lists for vectors or
	// {crys|crys_hkl, lab} maps for orientations.
	Variables map[string]interface{} `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Format identifies the encoding of a document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
)

// LoadedDocument is the result of loading one document.
type LoadedDocument struct {
	// Source is the file name, or "inline".
	Source string `json:"source"`

	// Format is the detected encoding.
	Format Format `json:"format"`

	// LoadedAt is when the document was read.
	LoadedAt time.Time `json:"loaded_at"`

	// Config is the assembled configuration. It is nil when Errors is not
	// empty.
	Config *cfg.Config `json:"-"`

	// Errors lists schema and value errors. Loading continues past value
	// errors so that all of them are reported together.
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is a document error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the path to the offending value (e.g., "variables.temp").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Code is the cfg error code for value errors, empty for schema errors.
	Code cfg.ErrorCode `json:"code,omitempty"`

	// Err is the underlying value error, if any.
	Err error `json:"-"`
}

// Unwrap returns the underlying value error.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	}
	switch {
	case loc != "" && e.Path != "":
		return fmt.Sprintf("%s: %s: %s", loc, e.Path, e.Message)
	case loc != "":
		return loc + ": " + e.Message
	case e.Path != "":
		return e.Path + ": " + e.Message
	}
	return e.Message
}
