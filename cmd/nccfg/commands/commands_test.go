package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nccfg/nccfg/pkg/cfg"
	"github.com/nccfg/nccfg/pkg/policy"
	"github.com/nccfg/nccfg/pkg/schema"
	"github.com/nccfg/nccfg/pkg/telemetry"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVarsCommand(t *testing.T) {
	out, err := execute(t, "vars")
	if err != nil {
		t.Fatalf("vars failed: %v", err)
	}
	if !strings.Contains(out, `inelas      = "auto"`) {
		t.Errorf("short listing missing inelas:\n%s", out)
	}

	out, err = execute(t, "vars", "--json")
	if err != nil {
		t.Fatalf("vars --json failed: %v", err)
	}
	var doc cfg.VarListDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Variables) != cfg.NumVars() {
		t.Errorf("got %d variables, want %d", len(doc.Variables), cfg.NumVars())
	}

	if _, err := execute(t, "vars", "--mode", "html"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "dcutoff")
	if err != nil {
		t.Fatalf("explain failed: %v", err)
	}
	for _, want := range []string{"dcutoff\n", "group:", "type:     double", "unit:     length", "default:"} {
		if !strings.Contains(out, want) {
			t.Errorf("explain output missing %q:\n%s", want, out)
		}
	}

	_, err = execute(t, "explain", "tmp")
	if err == nil || !strings.Contains(err.Error(), "did you mean") {
		t.Errorf("explain tmp error = %v", err)
	}
}

func TestNormalizeCommand(t *testing.T) {
	out, err := execute(t, "normalize", "Al_sg225.ncmat;temp=20C;inelas=none")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if out != "Al_sg225.ncmat;inelas=0;temp=293.15\n" {
		t.Errorf("normalize output = %q", out)
	}

	out, err = execute(t, "normalize", "--format", "yaml", "pg.ncmat;lcaxis=0,0,1;vdoslux=2")
	if err != nil {
		t.Fatalf("normalize --format yaml failed: %v", err)
	}
	var doc schema.Document
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, out)
	}
	c, errs := schema.BuildConfig(doc)
	if len(errs) > 0 {
		t.Fatalf("normalized document does not load: %v", errs)
	}
	if c.String() != "pg.ncmat;lcaxis=0,0,1;vdoslux=2" {
		t.Errorf("round trip = %q", c.String())
	}

	if _, err := execute(t, "normalize", "x;mos=1deg"); err == nil {
		t.Error("expected dependency error")
	}
	if _, err := execute(t, "normalize", "--format", "toml", "x"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", "Al_sg225.ncmat;temp=20C")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, "inline: ok") {
		t.Errorf("check output = %q", out)
	}

	out, err = execute(t, "check", "Al.ncmat;dcutoff=2;dcutoffup=1")
	if !errors.Is(err, ErrCheckFailed) {
		t.Errorf("denied check error = %v", err)
	}
	if !strings.Contains(out, "dspacing-cutoffs") {
		t.Errorf("denied check output = %q", out)
	}

	if _, err := execute(t, "check", "--disable", "dspacing-cutoffs", "Al.ncmat;dcutoff=2;dcutoffup=1"); err != nil {
		t.Errorf("check with disabled policy failed: %v", err)
	}
	if _, err := execute(t, "check", "--no-policies", "Al.ncmat;dcutoff=2;dcutoffup=1"); err != nil {
		t.Errorf("check without policies failed: %v", err)
	}

	out, err = execute(t, "check", "--json", "x;temp=-5")
	if !errors.Is(err, ErrCheckFailed) {
		t.Errorf("invalid check error = %v", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if report["status"] != "invalid" {
		t.Errorf("status = %v", report["status"])
	}

	out, err = execute(t, "check", "--metrics", "x;temp=20")
	if err != nil {
		t.Fatalf("check --metrics failed: %v", err)
	}
	if !strings.Contains(out, `nccfg_variables_parsed_total{outcome="ok",variable="temp"} 1`) {
		t.Errorf("metrics missing from output:\n%s", out)
	}

	if _, err := execute(t, "check", "--watch", "x"); err == nil {
		t.Error("expected error for --watch without --file")
	}
}

func TestCheckCommand_FileAndPolicies(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "hot.yaml")
	if err := os.WriteFile(doc, []byte("datasource: Al.ncmat\nvariables:\n  temp: 1500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rego := filepath.Join(dir, "hot.rego")
	if err := os.WriteFile(rego, []byte(`# Rejects very hot configurations
package custom.hot

import rego.v1

deny contains violation if {
	input.config.values.temp > 1000
	violation := {"message": "too hot", "severity": "error", "variable": "temp"}
}
`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "check", "--file", doc)
	if err != nil {
		t.Fatalf("check without custom policy failed: %v\n%s", err, out)
	}

	out, err = execute(t, "check", "--file", doc, "--policies", rego)
	if !errors.Is(err, ErrCheckFailed) {
		t.Errorf("check with custom policy error = %v", err)
	}
	if !strings.Contains(out, "too hot") {
		t.Errorf("output missing custom finding:\n%s", out)
	}
}

func TestPoliciesCommand(t *testing.T) {
	out, err := execute(t, "policies", "list")
	if err != nil {
		t.Fatalf("policies list failed: %v", err)
	}
	for _, name := range []string{"dspacing-cutoffs", "expert-overrides", "layered-crystal", "scattering-components"} {
		if !strings.Contains(out, name) {
			t.Errorf("policies list missing %s:\n%s", name, out)
		}
	}

	out, err = execute(t, "policies", "show", "layered-crystal")
	if err != nil {
		t.Fatalf("policies show failed: %v", err)
	}
	if !strings.HasPrefix(out, "package nccfg.policies.layered") {
		t.Errorf("policies show output = %q", out)
	}

	if _, err := execute(t, "policies", "show", "nope"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestLogFormatFlag(t *testing.T) {
	if _, err := execute(t, "--log-format", "xml", "vars"); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestReapplyDisabled(t *testing.T) {
	eng, err := policy.NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	logger := telemetry.NewLoggerTo(&buf, telemetry.LoggingConfig{Level: "info", Format: "json"})

	reapplyDisabled(eng, []string{"layered-crystal", "removed-policy"}, logger)

	p, err := eng.GetPolicy("layered-crystal")
	if err != nil {
		t.Fatal(err)
	}
	if p.Enabled {
		t.Error("layered-crystal is still enabled")
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"policy":"removed-policy"`) {
		t.Errorf("expected a warning for the missing policy, got %s", out)
	}
	if strings.Contains(out, `"policy":"layered-crystal"`) {
		t.Errorf("unexpected warning for an existing policy: %s", out)
	}
}
