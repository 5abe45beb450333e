package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nccfg/nccfg/pkg/check"
	"github.com/nccfg/nccfg/pkg/policy"
	"github.com/nccfg/nccfg/pkg/telemetry"
)

// ErrCheckFailed is returned when a checked configuration is invalid or
// denied by a policy. The report has already been printed.
var ErrCheckFailed = errors.New("configuration check failed")

const rerunDelay = 500 * time.Millisecond

type checkOptions struct {
	file         string
	policyPaths  []string
	disabled     []string
	noPolicies   bool
	watch        bool
	printMetrics bool
	metricsAddr  string
	traceExport  string
	otlpEndpoint string
}

func newCheckCommand(opts *options) *cobra.Command {
	co := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [cfgstr]",
		Short: "Validate a configuration",
		Long: `Validate a configuration string or document.

This command checks:
  - Document structure against the generated CUE schema (--file only)
  - Every value: syntax, units and ranges
  - Dependencies between variables (mos, dir1, dir2, dirtol)
  - Advisory Rego policies (built in and --policies)

The exit status is non-zero when the configuration is invalid or a policy
reports an error finding.`,
		Example: `  # Check a configuration string
  nccfg check 'Al_sg225.ncmat;temp=20C;dcutoff=0.5Aa'

  # Check a document with custom policies
  nccfg check --file al.yaml --policies ./policies

  # Re-check on every change of the document or the policies
  nccfg check --file al.yaml --policies ./policies --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := check.Input{File: co.file}
			if len(args) > 0 {
				in.CfgString = args[0]
			}
			if co.watch && co.file == "" {
				return fmt.Errorf("--watch requires --file")
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts, co, in)
		},
	}

	cmd.Flags().StringVarP(&co.file, "file", "f", "", "YAML, JSON, CUE or HCL configuration document")
	cmd.Flags().StringSliceVarP(&co.policyPaths, "policies", "p", nil, "policy files or directories")
	cmd.Flags().StringSliceVar(&co.disabled, "disable", nil, "policies to disable")
	cmd.Flags().BoolVar(&co.noPolicies, "no-policies", false, "skip policy evaluation")
	cmd.Flags().BoolVarP(&co.watch, "watch", "w", false, "re-run the check when the document or policies change")
	cmd.Flags().BoolVar(&co.printMetrics, "metrics", false, "print Prometheus metrics after the check")
	cmd.Flags().StringVar(&co.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&co.traceExport, "trace", "none", "trace exporter (none, stdout, otlp)")
	cmd.Flags().StringVar(&co.otlpEndpoint, "otlp-endpoint", "localhost:4317", "OTLP gRPC collector address")

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, opts *options, co *checkOptions, in check.Input) error {
	tc := telemetry.DefaultConfig()
	tc.Metrics.ListenAddress = co.metricsAddr
	if co.traceExport != "none" {
		tc.Tracing.Enabled = true
		tc.Tracing.Exporter = co.traceExport
		tc.Tracing.Endpoint = co.otlpEndpoint
	}
	tel, err := telemetry.NewTelemetryWithLogger(tc, telemetry.WrapLogger(log.Logger))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			tel.Logger.WithError(err).Warn("Failed to flush traces")
		}
	}()
	ctx = tel.WithContext(ctx)

	var eng *policy.Engine
	if !co.noPolicies {
		eng, err = policy.NewEngine(tel.Logger.Zerolog())
		if err != nil {
			return err
		}
		if len(co.policyPaths) > 0 {
			if err := eng.LoadPolicies(ctx, co.policyPaths); err != nil {
				return err
			}
		}
		for _, name := range co.disabled {
			if err := eng.DisablePolicy(name); err != nil {
				return err
			}
		}
		tel.Metrics.SetPoliciesLoaded(len(eng.ListPolicies()))
	}
	checker := check.New(eng, tel.Logger)

	once := func() error {
		report, err := checker.Run(ctx, in)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			err = report.WriteJSON(out)
		} else {
			err = report.WriteText(out)
		}
		if err != nil {
			return err
		}
		if report.Failed() {
			return ErrCheckFailed
		}
		return nil
	}

	if !co.watch {
		err := once()
		if co.printMetrics {
			if gerr := tel.Metrics.Gather(out); gerr != nil {
				return gerr
			}
		}
		return err
	}

	if srv := tel.Metrics.StartMetricsServer(tel.Logger.Zerolog()); srv != nil {
		defer srv.Close()
	}
	return watchAndCheck(ctx, co, eng, tel, once)
}

// watchAndCheck calls run once and again after every burst of changes to
// the document or the policy paths, until ctx is cancelled.
func watchAndCheck(ctx context.Context, co *checkOptions, eng *policy.Engine, tel *telemetry.Telemetry, run func() error) error {
	wlog := tel.Logger.NewComponentLogger("watch")
	rerun := make(chan struct{}, 1)
	trigger := func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	}

	if eng != nil && len(co.policyPaths) > 0 {
		loader := policy.NewLoader(tel.Logger.Zerolog())
		err := loader.Watch(ctx, co.policyPaths, func(policies []policy.Policy) error {
			err := eng.ReplaceLoaded(ctx, policies)
			if err == nil {
				reapplyDisabled(eng, co.disabled, wlog)
			}
			tel.Metrics.RecordPolicyReload(len(eng.ListPolicies()), err)
			if err == nil {
				trigger()
			}
			return err
		})
		if err != nil {
			return err
		}
		defer loader.StopWatching()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(co.file)
	if err != nil {
		return err
	}
	// Editors replace files on save, so the directory is watched.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", co.file, err)
	}

	report := func() {
		if err := run(); err != nil && !errors.Is(err, ErrCheckFailed) {
			wlog.WithError(err).Error("Check failed")
		}
	}
	report()
	wlog.WithField("file", co.file).Info("Watching for changes")

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-rerun:
			report()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(rerunDelay, trigger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			wlog.WithError(err).Error("Watcher error")
		}
	}
}

// reapplyDisabled disables names again after a policy reload. A name that
// no longer matches a policy is logged and skipped.
func reapplyDisabled(eng *policy.Engine, names []string, logger *telemetry.Logger) {
	for _, name := range names {
		if err := eng.DisablePolicy(name); err != nil {
			logger.WithField("policy", name).WithError(err).Warn("Failed to disable policy after reload")
		}
	}
}
