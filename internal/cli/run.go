package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/store"
)

func newRunCommand(st *state) *cobra.Command {
	var (
		overrides []string
		policy    string
		dryRun    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run <file.csv>...",
		Short: "Resolve, validate and load CSV files",
		Long: `Run each file through column resolution and row validation, then write the
accepted records to the configured database (DB_DRIVER).

Rejected rows are reported and never stop a run. A run aborts when required
fields cannot be resolved and the policy is abort; the command then exits 1.`,
		Example: `  # Load two files into the configured database
  retailpulse run jan.csv feb.csv

  # Validate only
  retailpulse run --dry-run jan.csv

  # Keep going when a required column is missing
  retailpulse run --policy proceed jan.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pinned, err := parseOverrides(overrides)
			if err != nil {
				return err
			}
			opts := st.cfg.ServiceOptions()
			if policy != "" {
				p, err := core.ParsePolicy(policy)
				if err != nil {
					return err
				}
				opts.Policy = p
			}

			cat, err := st.loadCatalog()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var sink core.Sink
			if !dryRun {
				s, err := store.Open(ctx, st.cfg.StoreConfig())
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer s.Close()
				sink = s
			}

			svc := core.NewService(cat, sink, opts)
			return runFiles(ctx, cmd, svc, args, pinned, asJSON)
		},
	}

	cmd.Flags().StringArrayVar(&overrides, "override", nil, "pin a field to a column (field=column, repeatable)")
	cmd.Flags().StringVar(&policy, "policy", "", "unresolved required fields: abort or proceed (default: $UNRESOLVED_POLICY)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing to the database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print run summaries as JSON")

	return cmd
}

// runFiles runs every file even when an earlier one fails and reports how
// many failed.
func runFiles(ctx context.Context, cmd *cobra.Command, svc *core.Service, paths []string, overrides map[string]string, asJSON bool) error {
	w := cmd.OutOrStdout()
	summaries := make([]*core.RunSummary, 0, len(paths))
	failed := 0

	for _, path := range paths {
		summary, err := svc.RunFile(ctx, path, overrides)
		if err != nil {
			failed++
			slog.Error("run failed", "file", path, "error", err)
			if summary == nil {
				summary = &core.RunSummary{File: path, Aborted: true, Error: err.Error()}
			}
		}
		summaries = append(summaries, summary)
		if !asJSON {
			renderSummary(w, summary)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if asJSON {
		if err := writeJSON(w, summaries); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(paths))
	}
	return nil
}
