package check

import (
	"time"

	"github.com/nccfg/nccfg/pkg/policy"
	"github.com/nccfg/nccfg/pkg/schema"
)

// Status summarises the outcome of a check.
type Status string

const (
	// StatusOK means the configuration is valid and no policy denied it.
	StatusOK Status = "ok"

	// StatusDenied means the configuration parsed but a policy reported an
	// error-severity finding.
	StatusDenied Status = "denied"

	// StatusInvalid means the configuration could not be assembled.
	StatusInvalid Status = "invalid"
)

// Input selects what to check. Exactly one of CfgString and File is set.
type Input struct {
	// CfgString is a configuration string, "datasource;name=value;...".
	CfgString string

	// File is a YAML, JSON or CUE document path.
	File string
}

// Source names the input in logs and reports.
func (in Input) Source() string {
	if in.File != "" {
		return in.File
	}
	return "inline"
}

// Report is the outcome of one check.
type Report struct {
	CheckID string `json:"check_id"`
	Source  string `json:"source"`
	Status  Status `json:"status"`

	// Config is the canonical configuration string, empty when invalid.
	Config string `json:"config,omitempty"`

	Errors   []schema.ValidationError `json:"errors,omitempty"`
	Findings []policy.Finding         `json:"findings,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the check should fail a pipeline.
func (r *Report) Failed() bool {
	return r.Status != StatusOK
}
