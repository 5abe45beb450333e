package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nccfg/nccfg/pkg/policy"
)

func newPoliciesCommand(opts *options) *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect configuration policies",
		Long: `Inspect the Rego policies applied by "nccfg check".

Built-in policies are always present; --policies adds files or directories
of .rego, .json or .yaml policy definitions.`,
	}
	cmd.PersistentFlags().StringSliceVarP(&paths, "policies", "p", nil, "policy files or directories")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newPolicyEngine(cmd, paths)
			if err != nil {
				return err
			}
			policies := eng.ListPolicies()
			out := cmd.OutOrStdout()

			if opts.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(policies)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSEVERITY\tSOURCE\tDESCRIPTION")
			for _, p := range policies {
				source := p.Source
				if p.Builtin {
					source = "builtin"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Severity, source, p.Description)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print the Rego source of a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newPolicyEngine(cmd, paths)
			if err != nil {
				return err
			}
			p, err := eng.GetPolicy(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(p.Rego, "\n"))
			return err
		},
	})

	return cmd
}

// newPolicyEngine creates an engine with the built-in policies plus the
// policies found under paths.
func newPolicyEngine(cmd *cobra.Command, paths []string) (*policy.Engine, error) {
	eng, err := policy.NewEngine(log.Logger)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		if err := eng.LoadPolicies(cmd.Context(), paths); err != nil {
			return nil, err
		}
	}
	return eng, nil
}
