package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otrenterprises/tiltedtrades/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <user-id> <file>",
	Short: "Import a broker execution export",
	Long: `Import a broker execution export (CSV, optionally .gz or .xz compressed)
into the journal for one user. Only rows with a Fill status are recorded.

After importing, run "tilted recompute <user-id>" to rebuild derived
trades and statistics.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	imp := &importer.Importer{Store: store}
	res, err := imp.ImportFile(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("Imported: %d\n", res.Imported)
	fmt.Printf("Filtered: %d (no Fill status)\n", res.Filtered)
	fmt.Printf("Invalid:  %d\n", res.Invalid)
	return nil
}
