package commands

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/nccfg/nccfg/pkg/cfg"
)

func newVarsCommand(opts *options) *cobra.Command {
	var (
		mode   string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "vars",
		Short: "List all configuration variables",
		Long: `List all configuration variables with their defaults.

Modes:
  short  name and default per variable
  full   adds group, type, unit, range, dependencies and description
  json   machine readable listing
  yaml   the json listing as YAML`,
		Example: `  # Short listing
  nccfg vars

  # Full documentation
  nccfg vars --mode full

  # Machine readable
  nccfg vars --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jsonOutput {
				mode = string(cfg.ModeJSON)
			}
			m, err := cfg.ParseDumpMode(mode)
			if err != nil {
				return err
			}
			return cfg.DumpVarList(cmd.OutOrStdout(), m, prefix)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(cfg.ModeTextShort), "listing mode (short, full, json, yaml)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "prefix for every output line")

	return cmd
}

func newExplainCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "explain <variable>",
		Short:   "Describe one configuration variable",
		Example: "  nccfg explain dcutoff",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := cfg.Lookup(args[0])
			if !ok {
				return cfg.LookupError(args[0])
			}
			doc := cfg.Docs().Variables[id]
			out := cmd.OutOrStdout()

			if opts.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}

			d := cfg.Describe(id)
			var b strings.Builder
			fmt.Fprintf(&b, "%s\n", d.Name)
			fmt.Fprintf(&b, "  group:    %s\n", doc.Group)
			fmt.Fprintf(&b, "  type:     %s\n", doc.Type)
			if doc.Unit != "" {
				fmt.Fprintf(&b, "  unit:     %s\n", doc.Unit)
			}
			fmt.Fprintf(&b, "  default:  %s\n", d.DefaultText())
			if doc.Range != "" {
				fmt.Fprintf(&b, "  range:    %s\n", doc.Range)
			}
			if len(doc.Requires) > 0 {
				fmt.Fprintf(&b, "  requires: %s\n", strings.Join(doc.Requires, ", "))
			}
			b.WriteString("\n")
			for _, line := range strings.Split(wordwrap.WrapString(doc.Description, 76), "\n") {
				b.WriteString("  " + line + "\n")
			}
			_, err := fmt.Fprint(out, b.String())
			return err
		},
	}
}
