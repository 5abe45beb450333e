package commands

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nccfg/nccfg/pkg/cfg"
	"github.com/nccfg/nccfg/pkg/schema"
)

func newNormalizeCommand(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "normalize <cfgstr>",
		Short: "Print the canonical form of a configuration string",
		Long: `Parse a configuration string and print it in canonical form: values in
canonical units, aliases resolved, variables in registry order. The output
parses back to the same configuration.

Formats:
  cfgstr  a configuration string (default)
  yaml    a YAML document accepted by "nccfg check --file"
  json    the same document as JSON`,
		Example: `  nccfg normalize 'Al_sg225.ncmat;temp=20C;inelas=none'
  # Al_sg225.ncmat;inelas=0;temp=293.15

  nccfg normalize --format yaml 'pg.ncmat;lcaxis=0,0,1'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.ParseCfgString(args[0])
			if err != nil {
				return err
			}
			if err := c.CheckConsistency(); err != nil {
				return err
			}
			if opts.jsonOutput {
				format = "json"
			}

			out := cmd.OutOrStdout()
			switch format {
			case "cfgstr":
				_, err = fmt.Fprintln(out, c.String())
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err = enc.Encode(schema.ToDocument(c)); err == nil {
					err = enc.Close()
				}
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(schema.ToDocument(c))
			default:
				err = fmt.Errorf("unknown format %q (expected cfgstr, yaml or json)", format)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "cfgstr", "output format (cfgstr, yaml, json)")

	return cmd
}
