// Package telemetry instruments configuration checks with structured logging
// (zerolog), tracing (OpenTelemetry) and metrics (Prometheus).
//
// # Usage
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//	ctx = tel.WithContext(ctx)
//
//	ic := telemetry.StartCheck(ctx, uuid.NewString(), "Al_sg225.ncmat;temp=20C")
//	err = ic.Phase("parse", func(ctx context.Context) error {
//	    err := c.SetRaw("temp", "20C")
//	    ic.RecordParse("temp", err)
//	    return err
//	})
//	ic.End("ok", 0, err)
//
// # Metrics
//
// Every Metrics instance owns a private registry:
//
//   - nccfg_variables_parsed_total{variable,outcome}
//   - nccfg_parse_errors_total{code}
//   - nccfg_checks_completed_total{status}
//   - nccfg_check_duration_seconds{status}
//   - nccfg_policy_findings_total{policy,severity}
//   - nccfg_policy_reloads_total{status}
//   - nccfg_policies_loaded
//
// Gather writes them in the Prometheus text format; StartMetricsServer
// serves them over HTTP for long running watch sessions.
//
// # Tracing
//
// A check produces a root span "nccfg.check" with one child span per phase
// (nccfg.parse, nccfg.schema, nccfg.consistency, nccfg.policy). Rejected
// values and policy findings are attached as span events. Exporters: stdout,
// otlp (gRPC) and none.
package telemetry
