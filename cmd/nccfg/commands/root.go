package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// options holds the global flags.
type options struct {
	verbose    bool
	jsonOutput bool
	logFormat  string
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "nccfg",
		Short: "nccfg - typed configuration variables for neutron scattering models",
		Long: `nccfg parses, validates and documents configuration strings such as

  Al_sg225.ncmat;temp=20C;dcutoff=0.5Aa;vdoslux=2

Every variable is typed, unit-aware and range checked. Configurations can
also be written as YAML, JSON or CUE documents, and are checked against
advisory Rego policies.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(opts, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(newVarsCommand(opts))
	rootCmd.AddCommand(newExplainCommand(opts))
	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newNormalizeCommand(opts))
	rootCmd.AddCommand(newPoliciesCommand(opts))

	return rootCmd
}

func configureLogging(opts *options, stderr io.Writer) error {
	switch opts.logFormat {
	case "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	case "json":
		log.Logger = zerolog.New(stderr).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q (must be console or json)", opts.logFormat)
	}
	if opts.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return nil
}
