package policy

import (
	"sort"
	"time"

	"github.com/nccfg/nccfg/pkg/cfg"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for settings that are valid but likely unintended.
	SeverityWarning Severity = "warning"

	// SeverityError is for configurations that can not produce useful
	// results. Findings of this severity make a check fail.
	SeverityError Severity = "error"
)

// rank orders severities for sorting, most severe first.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// Policy is a Rego module producing findings through its deny rule set.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego" yaml:"rego"`

	// Severity is the default severity for findings that do not set one.
	Severity Severity `json:"severity" yaml:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Builtin is set for the policies compiled into the binary.
	Builtin bool `json:"builtin" yaml:"-"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Source is the file the policy was loaded from.
	Source string `json:"source,omitempty" yaml:"-"`
}

// Finding is one message produced by a policy.
type Finding struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// Variable is the configuration variable the finding is about, if any.
	Variable string `json:"variable,omitempty"`

	// Message is a human-readable message.
	Message string `json:"message"`

	// Severity is the finding severity.
	Severity Severity `json:"severity"`

	// Remediation suggests a fix.
	Remediation string `json:"remediation,omitempty"`
}

// Result is the outcome of evaluating all enabled policies against one
// configuration.
type Result struct {
	// CheckID correlates the result with logs, traces and metrics.
	CheckID string `json:"check_id,omitempty"`

	// Allowed is false when there is at least one error finding.
	Allowed bool `json:"allowed"`

	// Findings lists all findings, most severe first.
	Findings []Finding `json:"findings,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of the policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation finished.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// CountBySeverity returns the number of findings per severity.
func (r *Result) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int)
	for i := range r.Findings {
		out[r.Findings[i].Severity]++
	}
	return out
}

func sortFindings(f []Finding) {
	sort.SliceStable(f, func(i, j int) bool {
		a, b := f[i], f[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.Policy != b.Policy {
			return a.Policy < b.Policy
		}
		if a.Variable != b.Variable {
			return a.Variable < b.Variable
		}
		return a.Message < b.Message
	})
}

// Input is the document policies see as input.
type Input struct {
	Config  ConfigInput `json:"config"`
	Context *Context    `json:"context"`
}

// ConfigInput describes an assembled configuration.
type ConfigInput struct {
	// DataSource is the data source name.
	DataSource string `json:"datasource"`

	// Explicit lists the explicitly set variables in registry order.
	Explicit []string `json:"explicit"`

	// Values holds the effective value of every variable that has one,
	// explicit or default. Infinite doubles appear as the string "inf".
	Values map[string]interface{} `json:"values"`

	// SingleCrystal is set when an orientation is configured.
	SingleCrystal bool `json:"single_crystal"`

	// LayeredCrystal is set when the layered crystal model applies.
	LayeredCrystal bool `json:"layered_crystal"`
}

// Context provides information about the evaluation itself.
type Context struct {
	// CheckID is the identifier of the check run.
	CheckID string `json:"check_id,omitempty"`

	// Source is where the configuration came from (a file name, or
	// "cfgstr").
	Source string `json:"source,omitempty"`

	// Operation is the CLI operation performing the evaluation.
	Operation string `json:"operation,omitempty"`

	// Timestamp is when the evaluation started.
	Timestamp time.Time `json:"timestamp"`
}

// NewInput builds the policy input of a configuration.
func NewInput(c *cfg.Config, ctx *Context) *Input {
	in := &Input{
		Config: ConfigInput{
			DataSource:     c.DataSource,
			Explicit:       []string{},
			Values:         make(map[string]interface{}),
			SingleCrystal:  c.IsSingleCrystal(),
			LayeredCrystal: c.IsLayeredCrystal(),
		},
		Context: ctx,
	}
	for _, id := range c.Explicit() {
		in.Config.Explicit = append(in.Config.Explicit, id.Name())
	}
	for _, id := range cfg.VarIDs() {
		if v, ok := c.Get(id); ok {
			in.Config.Values[id.Name()] = v.Interface()
		}
	}
	return in
}
