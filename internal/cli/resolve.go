package cli

import (
	"github.com/spf13/cobra"

	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

type resolveOutput struct {
	File    string           `json:"file"`
	Columns []string         `json:"columns"`
	Mapping *resolve.Mapping `json:"mapping"`
	Review  []string         `json:"review"`
}

func newResolveCommand(st *state) *cobra.Command {
	var (
		overrides []string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <file.csv>",
		Short: "Show how a file's columns map onto the catalog",
		Long: `Read the header of a CSV file and print the field each column resolves to,
with the matching tier and score, followed by any review issues.

No rows are validated and nothing is written.`,
		Example: `  # Inspect a mapping
  retailpulse resolve sales_q1.csv

  # Pin a column the matcher gets wrong
  retailpulse resolve sales_q1.csv --override product_name="Item"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pinned, err := parseOverrides(overrides)
			if err != nil {
				return err
			}
			cat, err := st.loadCatalog()
			if err != nil {
				return err
			}

			opts := st.cfg.ServiceOptions()
			svc := core.NewService(cat, nil, opts)

			t, err := core.ReadTableFile(args[0], opts.Read)
			if err != nil {
				return err
			}
			mapping, err := svc.Resolve(t.Columns, pinned)
			if err != nil {
				return err
			}
			review := svc.Review(mapping)

			w := cmd.OutOrStdout()
			if asJSON {
				if review == nil {
					review = []string{}
				}
				return writeJSON(w, resolveOutput{File: t.Name, Columns: t.Columns, Mapping: mapping, Review: review})
			}
			renderMapping(w, t.Name, mapping, review)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&overrides, "override", nil, "pin a field to a column (field=column, repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the mapping as JSON")

	return cmd
}
