package check

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nccfg/nccfg/pkg/cfg"
	"github.com/nccfg/nccfg/pkg/policy"
	"github.com/nccfg/nccfg/pkg/schema"
	"github.com/nccfg/nccfg/pkg/telemetry"
)

// Checker validates configurations. It is safe for concurrent use.
type Checker struct {
	loader *schema.Loader
	engine *policy.Engine
	logger *telemetry.Logger
}

// New creates a checker. A nil engine skips the policy phase and a nil
// logger discards log output.
func New(engine *policy.Engine, logger *telemetry.Logger) *Checker {
	if logger == nil {
		logger = telemetry.WrapLogger(zerolog.Nop())
	}
	return &Checker{
		loader: schema.NewLoader(logger.Zerolog()),
		engine: engine,
		logger: logger.NewComponentLogger("check"),
	}
}

// Run checks one input. The returned error covers failures of the checker
// itself (unreadable file, cancelled context); problems with the
// configuration are reported in the Report.
func (c *Checker) Run(ctx context.Context, in Input) (*Report, error) {
	if (in.CfgString == "") == (in.File == "") {
		return nil, fmt.Errorf("exactly one of a configuration string or a file is required")
	}

	report := &Report{
		CheckID:   uuid.NewString(),
		Source:    in.Source(),
		CheckedAt: time.Now().UTC(),
	}
	ic := telemetry.StartCheck(ctx, report.CheckID, report.Source)
	log := c.logger.WithCheckID(report.CheckID).WithSource(report.Source)

	conf, err := c.assemble(ic, in, report)
	if err != nil {
		ic.End(string(StatusInvalid), 0, err)
		log.WithError(err).Error("Check aborted")
		return nil, err
	}
	if conf == nil {
		report.Status = StatusInvalid
		report.Duration = ic.Timer.Duration()
		ic.End(string(report.Status), len(report.Errors), nil)
		log.Infof("Configuration rejected with %d error(s)", len(report.Errors))
		return report, nil
	}
	report.Config = conf.String()
	report.Status = StatusOK

	if c.engine != nil {
		err = ic.Phase("policy", func(ctx context.Context) error {
			res, err := c.engine.Evaluate(ctx, conf, &policy.Context{
				CheckID:   report.CheckID,
				Source:    report.Source,
				Operation: "check",
				Timestamp: report.CheckedAt,
			})
			if err != nil {
				return err
			}
			report.Findings = res.Findings
			report.Warnings = res.Warnings
			if !res.Allowed {
				report.Status = StatusDenied
			}
			return nil
		})
		if err != nil {
			ic.End(string(StatusInvalid), 0, err)
			log.WithError(err).Error("Policy evaluation failed")
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		for _, f := range report.Findings {
			ic.RecordFinding(f.Policy, f.Variable, string(f.Severity), f.Message)
		}
	}

	report.Duration = ic.Timer.Duration()
	ic.End(string(report.Status), len(report.Findings), nil)
	log.Debugf("Configuration checked: %s with %d finding(s)", report.Status, len(report.Findings))
	return report, nil
}

// assemble builds the configuration, returning nil with report.Errors set
// when the input is invalid.
func (c *Checker) assemble(ic *telemetry.InstrumentedContext, in Input, report *Report) (*cfg.Config, error) {
	var (
		doc  *schema.LoadedDocument
		vars []string
	)

	if in.File != "" {
		err := ic.Phase("schema", func(ctx context.Context) error {
			var err error
			doc, err = c.loader.LoadFile(ctx, in.File)
			return err
		})
		if err != nil {
			return nil, err
		}
		if doc.Config != nil {
			vars = explicitNames(doc.Config)
		}
	} else {
		var parsed schema.Document
		err := ic.Phase("parse", func(ctx context.Context) error {
			var err error
			parsed, err = documentFromCfgString(in.CfgString)
			return err
		})
		if err != nil {
			report.Errors = []schema.ValidationError{{File: report.Source, Message: err.Error(), Code: cfg.CodeOf(err), Err: err}}
			return nil, nil
		}
		doc = &schema.LoadedDocument{Source: report.Source, LoadedAt: report.CheckedAt}
		_ = ic.Phase("consistency", func(ctx context.Context) error {
			doc.Config, doc.Errors = schema.BuildConfig(parsed)
			if len(doc.Errors) > 0 {
				return doc.Errors[0]
			}
			return nil
		})
		for name := range parsed.Variables {
			vars = append(vars, name)
		}
	}

	rejected := make(map[string]bool, len(doc.Errors))
	for i := range doc.Errors {
		if doc.Errors[i].File == "" {
			doc.Errors[i].File = report.Source
		}
		if name, ok := strings.CutPrefix(doc.Errors[i].Path, "variables."); ok && doc.Errors[i].Code != cfg.ErrCodeDependency {
			rejected[name] = true
			if doc.Errors[i].Code == cfg.ErrCodeUnknownVariable {
				name = "unknown"
			}
			ic.RecordParse(name, doc.Errors[i])
		}
	}
	for _, name := range vars {
		if !rejected[name] {
			ic.RecordParse(name, nil)
		}
	}

	if len(doc.Errors) > 0 {
		report.Errors = doc.Errors
		return nil, nil
	}
	return doc.Config, nil
}

// documentFromCfgString turns a configuration string into a document whose
// values are the raw text tokens.
func documentFromCfgString(s string) (schema.Document, error) {
	ds, assignments, err := cfg.TokenizeCfgString(s)
	if err != nil {
		return schema.Document{}, err
	}
	if ds == "" {
		return schema.Document{}, fmt.Errorf("configuration string %q does not start with a data source", s)
	}
	doc := schema.Document{DataSource: ds}
	if len(assignments) > 0 {
		doc.Variables = make(map[string]interface{}, len(assignments))
		for _, a := range assignments {
			doc.Variables[a.Name] = a.Raw
		}
	}
	return doc, nil
}

func explicitNames(c *cfg.Config) []string {
	ids := c.Explicit()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name()
	}
	return names
}
