package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nccfg/nccfg/pkg/cfg"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func mustConfig(t *testing.T, s string) *cfg.Config {
	t.Helper()
	c, err := cfg.ParseCfgString(s)
	if err != nil {
		t.Fatalf("ParseCfgString(%q): %v", s, err)
	}
	return c
}

func findingsFor(r *Result, policy string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Policy == policy {
			out = append(out, f)
		}
	}
	return out
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	want := []string{"dspacing-cutoffs", "expert-overrides", "layered-crystal", "scattering-components"}
	if len(policies) != len(want) {
		t.Fatalf("expected %d built-in policies, got %d", len(want), len(policies))
	}
	for i, p := range policies {
		if p.Name != want[i] {
			t.Errorf("policy %d = %s, want %s", i, p.Name, want[i])
		}
		if !p.Builtin || !p.Enabled {
			t.Errorf("policy %s should be an enabled built-in", p.Name)
		}
	}
}

func TestEvaluate_DefaultConfigIsClean(t *testing.T) {
	eng := newTestEngine(t)

	res, err := eng.Evaluate(context.Background(), mustConfig(t, "Al_sg225.ncmat"), &Context{CheckID: "abc"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !res.Allowed || len(res.Findings) != 0 || len(res.Warnings) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.CheckID != "abc" || len(res.EvaluatedPolicies) != 4 {
		t.Errorf("unexpected result metadata %+v", res)
	}
}

func TestEvaluate_BuiltinFindings(t *testing.T) {
	const crystal = "pg.ncmat;mos=0.5deg;dir1=@crys_hkl:0,0,1@lab:0,0,1;dir2=@crys:1,0,0@lab:1,0,0"

	tests := []struct {
		name         string
		cfgstr       string
		policy       string
		wantVariable string
		wantSeverity Severity
		wantMessage  string
		wantAllowed  bool
	}{
		{
			name:         "negative lcmode",
			cfgstr:       crystal + ";lcaxis=0,0,1;lcmode=-50",
			policy:       "layered-crystal",
			wantVariable: "lcmode",
			wantSeverity: SeverityWarning,
			wantMessage:  "not safe for multi-threaded use",
			wantAllowed:  true,
		},
		{
			name:         "positive lcmode",
			cfgstr:       crystal + ";lcaxis=0,0,1;lcmode=1000",
			policy:       "layered-crystal",
			wantVariable: "lcmode",
			wantSeverity: SeverityInfo,
			wantMessage:  "slow reference model",
			wantAllowed:  true,
		},
		{
			name:         "lcaxis without orientation",
			cfgstr:       "pg.ncmat;lcaxis=0,0,1",
			policy:       "layered-crystal",
			wantVariable: "lcaxis",
			wantSeverity: SeverityWarning,
			wantMessage:  "no effect",
			wantAllowed:  true,
		},
		{
			name:         "empty d-spacing range",
			cfgstr:       "Al.ncmat;dcutoff=2;dcutoffup=1",
			policy:       "dspacing-cutoffs",
			wantVariable: "dcutoffup",
			wantSeverity: SeverityError,
			wantMessage:  "no crystal planes",
			wantAllowed:  false,
		},
		{
			name:         "everything disabled",
			cfgstr:       "Al.ncmat;inelas=0;coh_elas=0;incoh_elas=0;sans=0",
			policy:       "scattering-components",
			wantVariable: "inelas",
			wantSeverity: SeverityWarning,
			wantMessage:  "only absorption",
			wantAllowed:  true,
		},
		{
			name:         "factory override",
			cfgstr:       "Al.ncmat;scatfactory=!bragg",
			policy:       "expert-overrides",
			wantVariable: "scatfactory",
			wantSeverity: SeverityInfo,
			wantMessage:  "scatfactory=!bragg",
			wantAllowed:  true,
		},
		{
			name:         "atomdb without defaults",
			cfgstr:       "Al.ncmat;atomdb=nodefaults@Al:is:Al27",
			policy:       "expert-overrides",
			wantVariable: "atomdb",
			wantSeverity: SeverityInfo,
			wantMessage:  "atom database is disabled",
			wantAllowed:  true,
		},
	}

	eng := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := eng.Evaluate(context.Background(), mustConfig(t, tt.cfgstr), nil)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if len(res.Warnings) > 0 {
				t.Fatalf("policy evaluation warnings: %v", res.Warnings)
			}
			if res.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", res.Allowed, tt.wantAllowed)
			}
			var match *Finding
			for _, f := range findingsFor(res, tt.policy) {
				if f.Variable == tt.wantVariable && strings.Contains(f.Message, tt.wantMessage) {
					f := f
					match = &f
				}
			}
			if match == nil {
				t.Fatalf("no %s finding on %s containing %q in %+v", tt.policy, tt.wantVariable, tt.wantMessage, res.Findings)
			}
			if match.Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", match.Severity, tt.wantSeverity)
			}
		})
	}
}

func TestEvaluate_FindingsSortedBySeverity(t *testing.T) {
	eng := newTestEngine(t)
	res, err := eng.Evaluate(context.Background(), mustConfig(t, "x;dcutoff=2;dcutoffup=1;lcaxis=0,0,1;scatfactory=a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) < 3 {
		t.Fatalf("expected at least 3 findings, got %+v", res.Findings)
	}
	if res.Findings[0].Severity != SeverityError || res.Findings[len(res.Findings)-1].Severity != SeverityInfo {
		t.Errorf("findings not sorted by severity: %+v", res.Findings)
	}
	counts := res.CountBySeverity()
	if counts[SeverityError] != 1 || counts[SeverityWarning] != 1 {
		t.Errorf("CountBySeverity() = %v", counts)
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)
	c := mustConfig(t, "Al.ncmat;dcutoff=2;dcutoffup=1")

	if err := eng.DisablePolicy("dspacing-cutoffs"); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}
	res, err := eng.Evaluate(context.Background(), c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || len(res.EvaluatedPolicies) != 3 {
		t.Errorf("disabled policy was evaluated: %+v", res)
	}

	if err := eng.EnablePolicy("dspacing-cutoffs"); err != nil {
		t.Fatalf("EnablePolicy failed: %v", err)
	}
	res, err = eng.Evaluate(context.Background(), c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("expected the re-enabled policy to reject the configuration")
	}

	if err := eng.EnablePolicy("nosuch"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

const customRego = `package custom.temperature

import rego.v1

deny contains msg if {
	t := input.config.values.temp
	t > 1000
	msg := sprintf("temp=%v is unusually high", [t])
}`

func TestAddPolicies(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.AddPolicies(context.Background(), []Policy{{
		Name:     "hot",
		Rego:     customRego,
		Severity: SeverityWarning,
		Enabled:  true,
	}})
	if err != nil {
		t.Fatalf("AddPolicies failed: %v", err)
	}

	res, err := eng.Evaluate(context.Background(), mustConfig(t, "x;temp=2000"), nil)
	if err != nil {
		t.Fatal(err)
	}
	found := findingsFor(res, "hot")
	if len(found) != 1 || found[0].Severity != SeverityWarning || !strings.Contains(found[0].Message, "unusually high") {
		t.Errorf("unexpected findings %+v", res.Findings)
	}

	if err := eng.AddPolicies(context.Background(), []Policy{{Name: "broken", Rego: "package x\ndeny contains"}}); err == nil {
		t.Error("expected compile error")
	}
	if _, err := eng.GetPolicy("broken"); err == nil {
		t.Error("broken policy must not be stored")
	}
}

func TestReplaceLoadedAndReload(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if err := eng.AddPolicies(ctx, []Policy{{Name: "hot", Rego: customRego, Enabled: true}}); err != nil {
		t.Fatal(err)
	}
	if err := eng.ReplaceLoaded(ctx, []Policy{{Name: "hot2", Rego: customRego, Enabled: true}}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GetPolicy("hot"); err == nil {
		t.Error("ReplaceLoaded must drop previously loaded policies")
	}
	if _, err := eng.GetPolicy("layered-crystal"); err != nil {
		t.Error("ReplaceLoaded must keep built-in policies")
	}

	if err := eng.ReloadPolicies(ctx); err != nil {
		t.Fatal(err)
	}
	if len(eng.ListPolicies()) != 4 {
		t.Errorf("expected only built-in policies after reload, got %d", len(eng.ListPolicies()))
	}
}

func TestNewInput(t *testing.T) {
	in := NewInput(mustConfig(t, "x;lcaxis=0,0,1;vdoslux=1"), &Context{Operation: "check"})
	if in.Config.DataSource != "x" || len(in.Config.Explicit) != 2 || in.Config.Explicit[0] != "lcaxis" {
		t.Errorf("unexpected input %+v", in.Config)
	}
	if _, ok := in.Config.Values["mos"]; ok {
		t.Error("variables without value must be absent")
	}
	if in.Config.Values["dcutoffup"] != "inf" || in.Config.Values["vdoslux"] != int64(1) {
		t.Errorf("unexpected values %v", in.Config.Values)
	}
	if in.Config.SingleCrystal || in.Config.LayeredCrystal {
		t.Error("not a single crystal")
	}
}
