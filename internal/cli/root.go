// Package cli provides the retailpulse command-line interface.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/config"
	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig marks commands that run without loading the environment.
const skipConfig = "skip-config"

// state is shared by every command of one root.
type state struct {
	catalogPath string
	cfg         *config.Config
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:   "retailpulse",
		Short: "Retail Pulse - sales file ingestion",
		Long: `Retail Pulse maps the columns of retail sales exports onto a fixed catalog
of logical fields, coerces every row to typed values and loads the accepted
records into a database.

Configuration is read from the environment and an optional .env file.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsConfig(cmd) {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if st.catalogPath != "" {
				cfg.Pipeline.CatalogPath = st.catalogPath
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			st.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&st.catalogPath, "catalog", "", "catalog file (default: $CATALOG_PATH or the built-in catalog)")

	rootCmd.AddCommand(newResolveCommand(st))
	rootCmd.AddCommand(newRunCommand(st))
	rootCmd.AddCommand(newServeCommand(st))
	rootCmd.AddCommand(newCatalogCommand(st))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(stderr, core.FormatUserError(err))
		}
		return 1
	}
	return 0
}

// needsConfig reports whether cmd or one of its parents asks to skip
// environment loading.
func needsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "__complete":
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfig] == "true" {
			return false
		}
	}
	return true
}

// loadCatalog returns the configured catalog or the built-in one.
func (st *state) loadCatalog() (*catalog.Catalog, error) {
	if st.cfg == nil || st.cfg.Pipeline.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(st.cfg.Pipeline.CatalogPath)
}

// parseOverrides turns repeated field=column flags into a map.
func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		field, column, ok := strings.Cut(p, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" || strings.TrimSpace(column) == "" {
			return nil, fmt.Errorf("invalid override %q (want field=column)", p)
		}
		out[field] = column
	}
	return out, nil
}
