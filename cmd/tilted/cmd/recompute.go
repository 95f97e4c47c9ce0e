package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otrenterprises/tiltedtrades/notify"
)

var recomputeAll bool

var recomputeCmd = &cobra.Command{
	Use:   "recompute [user-id]",
	Short: "Rebuild derived trades and statistics",
	Long: `Recompute matched trades (both accounting policies) and the stats
snapshot from the stored execution history.

With a user id, recomputes that user and fails on any error. With --all,
iterates every known user, isolating failures per user and reporting the
processed/error counts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecompute,
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
	recomputeCmd.Flags().BoolVar(&recomputeAll, "all", false, "recompute every known user")
}

func runRecompute(cmd *cobra.Command, args []string) error {
	if recomputeAll == (len(args) == 1) {
		return fmt.Errorf("specify either a user id or --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	log := newLogger()
	orch, err := newOrchestrator(cfg, store, log)
	if err != nil {
		return err
	}
	orch.Notifier = &notify.LogNotifier{Log: log}

	if recomputeAll {
		res, err := orch.RecomputeAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("recompute all: %w", err)
		}
		fmt.Printf("Processed: %d\n", res.Processed)
		fmt.Printf("Errors:    %d\n", res.Errors)
		return nil
	}

	if err := orch.RecomputeUser(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("recompute %s: %w", args[0], err)
	}
	return nil
}
