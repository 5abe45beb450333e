package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nccfg/nccfg/pkg/cfg"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "default", modify: func(c *Config) {}},
		{name: "no service name", modify: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "no version", modify: func(c *Config) { c.ServiceVersion = "" }, wantErr: true},
		{name: "bad level", modify: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", modify: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "json format", modify: func(c *Config) { c.Logging.Format = "json" }},
		{
			name:    "bad exporter",
			modify:  func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "jaeger" },
			wantErr: true,
		},
		{
			name:    "otlp without endpoint",
			modify:  func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "otlp" },
			wantErr: true,
		},
		{
			name: "otlp with endpoint",
			modify: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
				c.Tracing.Endpoint = "localhost:4317"
			},
		},
		{name: "sampling rate", modify: func(c *Config) { c.Tracing.SamplingRate = 1.5 }, wantErr: true},
		{name: "no namespace", modify: func(c *Config) { c.Metrics.Namespace = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.NewComponentLogger("policy").WithCheckID("c-1").WithSource("x.yaml").Info("evaluated")

	out := buf.String()
	for _, want := range []string{`"component":"policy"`, `"check_id":"c-1"`, `"source":"x.yaml"`, `"message":"evaluated"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %s", buf.String())
	}
	logger.WithField("policy", "p").WithError(errors.New("boom")).Warn("shown")
	out := buf.String()
	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"policy":"p"`) || !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("expected warning in output, got %s", buf.String())
	}
}

func TestLogger_Context(t *testing.T) {
	logger := NewLoggerTo(&bytes.Buffer{}, LoggingConfig{Level: "info", Format: "json"})
	ctx := logger.WithContext(context.Background())
	if FromContext(ctx) != logger {
		t.Error("FromContext did not return the stored logger")
	}
	if got := FromContext(context.Background()).Zerolog().GetLevel(); got != zerolog.Disabled {
		t.Errorf("fallback logger level = %v, want disabled", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace": zerolog.TraceLevel,
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMetrics_RecordParse(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordParse("temp", nil)
	m.RecordParse("temp", nil)

	c := cfg.NewConfig("x.ncmat")
	rangeErr := c.SetRaw("vdoslux", "9")
	m.RecordParse("vdoslux", rangeErr)
	m.RecordParse("vdoslux", errors.New("plain"))

	if got := testutil.ToFloat64(m.varsParsed.WithLabelValues("temp", "ok")); got != 2 {
		t.Errorf("temp ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.varsParsed.WithLabelValues("vdoslux", "rejected")); got != 2 {
		t.Errorf("vdoslux rejected = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.parseErrors.WithLabelValues("RANGE")); got != 1 {
		t.Errorf("RANGE errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.parseErrors.WithLabelValues("UNKNOWN")); got != 1 {
		t.Errorf("UNKNOWN errors = %v, want 1", got)
	}
}

func TestMetrics_Gather(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordCheck("ok", 3*time.Millisecond)
	m.RecordFinding("layered-crystal", "warning")
	m.RecordPolicyReload(5, nil)
	m.RecordPolicyReload(0, errors.New("bad rego"))

	var buf bytes.Buffer
	if err := m.Gather(&buf); err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`nccfg_checks_completed_total{status="ok"} 1`,
		`nccfg_check_duration_seconds_count{status="ok"} 1`,
		`nccfg_policy_findings_total{policy="layered-crystal",severity="warning"} 1`,
		`nccfg_policy_reloads_total{status="failed"} 1`,
		`nccfg_policies_loaded 5`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Gather output missing %q\n%s", want, out)
		}
	}
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordParse("temp", nil)
	m.RecordCheck("ok", time.Second)
	m.RecordFinding("p", "info")
	m.RecordPolicyReload(1, nil)
	m.SetPoliciesLoaded(3)

	var buf bytes.Buffer
	if err := m.Gather(&buf); err != nil || buf.Len() != 0 {
		t.Errorf("disabled Gather() = %q, %v", buf.String(), err)
	}
	if m.Registry() != nil {
		t.Error("disabled metrics should have no registry")
	}
	if m.StartMetricsServer(zerolog.Nop()) != nil {
		t.Error("disabled metrics should not start a server")
	}
}

func TestStartCheck(t *testing.T) {
	c := DefaultConfig()
	logger := NewLoggerTo(&bytes.Buffer{}, c.Logging)
	tel, err := NewTelemetryWithLogger(c, logger)
	if err != nil {
		t.Fatalf("NewTelemetryWithLogger() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	ic := StartCheck(tel.WithContext(context.Background()), "check-1", "inline")

	phaseErr := errors.New("boom")
	if err := ic.Phase("parse", func(ctx context.Context) error {
		ic.RecordParse("temp", nil)
		ic.RecordParse("mos", phaseErr)
		return phaseErr
	}); !errors.Is(err, phaseErr) {
		t.Errorf("Phase() error = %v, want %v", err, phaseErr)
	}
	ic.RecordFinding("expert-overrides", "atomdb", "info", "disabled")
	ic.End("invalid", 1, phaseErr)

	m := tel.Metrics
	if got := testutil.ToFloat64(m.checksCompleted.WithLabelValues("invalid")); got != 1 {
		t.Errorf("invalid checks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.varsParsed.WithLabelValues("mos", "rejected")); got != 1 {
		t.Errorf("mos rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.policyFindings.WithLabelValues("expert-overrides", "info")); got != 1 {
		t.Errorf("findings = %v, want 1", got)
	}
}

func TestStartCheck_WithoutTelemetry(t *testing.T) {
	ic := StartCheck(context.Background(), "check-2", "inline")
	called := false
	if err := ic.Phase("schema", func(ctx context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Errorf("Phase() error = %v", err)
	}
	if !called {
		t.Error("phase function not called")
	}
	ic.RecordParse("temp", nil)
	ic.RecordFinding("p", "v", "info", "m")
	ic.End("ok", 0, nil)
}

func TestNewTracer(t *testing.T) {
	tests := []struct {
		name    string
		tc      TracingConfig
		wantErr bool
	}{
		{name: "disabled", tc: TracingConfig{}},
		{name: "none", tc: TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}},
		{name: "stdout", tc: TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 1, MaxExportBatchSize: 8, ExportTimeout: time.Second}},
		{name: "unknown", tc: TracingConfig{Enabled: true, Exporter: "zipkin"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTracer(tt.tc, "nccfg-test", "dev")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTracer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			ctx, span := tr.StartCheckSpan(context.Background(), "id", "src")
			_, child := tr.StartPhaseSpan(ctx, "policy")
			child.End()
			span.End()
			if err := tr.Shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}
