package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otrenterprises/tiltedtrades/matching"
)

var tradesPolicy string

var tradesCmd = &cobra.Command{
	Use:   "trades <user-id>",
	Short: "List matched trades for a user",
	Long: `List the derived trades for one user under one accounting policy.

Both policies are stored; pick one with --policy (FIFO or PER_POSITION).`,
	Args: cobra.ExactArgs(1),
	RunE: runTrades,
}

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.Flags().StringVarP(&tradesPolicy, "policy", "p", string(matching.PolicyFIFO), "accounting policy")
}

func runTrades(cmd *cobra.Command, args []string) error {
	policy := matching.Policy(tradesPolicy)
	if !policy.Valid() {
		return fmt.Errorf("unknown policy %q", tradesPolicy)
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

	trades, err := store.ListTrades(cmd.Context(), args[0], policy)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("no trades")
		return nil
	}

	fmt.Printf("%-26s %-6s %-5s %-8s %5s %10s %10s %10s %8s\n",
		"ENTRY", "SYM", "DIR", "STATUS", "QTY", "ENTRY PX", "EXIT PX", "NET P/L", "FEES")
	for _, t := range trades {
		exitPx := "-"
		if t.Closed() {
			exitPx = fmt.Sprintf("%.2f", t.ExitPrice)
		}
		fmt.Printf("%-26s %-6s %-5s %-8s %5d %10.2f %10s %10.2f %8.2f\n",
			t.EntryTime.Format(time.RFC3339), t.Symbol, t.Direction, t.Status,
			t.Quantity, t.EntryPrice, exitPx, t.NetPL, t.Commission)
	}
	return nil
}
