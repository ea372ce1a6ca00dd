package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adelakul/retail-pulse/internal/catalog"
)

func newCatalogCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate field catalogs",
		Long: `Work with field catalogs without loading the rest of the configuration.

The catalog is taken from the path argument, then --catalog, then the
built-in retail catalog.`,
		Annotations: map[string]string{skipConfig: "true"},
	}

	cmd.AddCommand(newCatalogShowCommand(st))
	cmd.AddCommand(newCatalogValidateCommand(st))
	cmd.AddCommand(newCatalogDefaultCommand())

	return cmd
}

func newCatalogShowCommand(st *state) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "List the fields of a catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalogFromArgs(st, args)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), catalogJSON(cat))
			}
			renderCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func newCatalogValidateCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a catalog file and report every problem",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalogFromArgs(st, args)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "catalog OK: %d fields, %d required\n", cat.Len(), len(cat.Required()))
			return nil
		},
	}
}

func newCatalogDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print the built-in catalog as YAML",
		Long:  `Print the built-in catalog source, as a starting point for a custom CATALOG_PATH file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(catalog.DefaultSource())
			return err
		},
	}
}

func catalogFromArgs(st *state, args []string) (*catalog.Catalog, error) {
	path := st.catalogPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}
