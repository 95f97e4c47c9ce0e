package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/otrenterprises/tiltedtrades/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show the published statistics snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.GetSnapshot(cmd.Context(), args[0], stats.ScopeAll)
	if err != nil {
		return err
	}

	fmt.Println("==================================================")
	fmt.Println(" Performance Statistics")
	fmt.Println("==================================================")
	fmt.Printf("User:            %s\n", snap.UserID)
	fmt.Printf("Calculated:      %s\n", snap.CalculatedAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Trades")
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total:           %d\n", snap.TotalTrades)
	fmt.Printf("Wins:            %d\n", snap.WinningTrades)
	fmt.Printf("Losses:          %d\n", snap.LosingTrades)
	fmt.Printf("Breakeven:       %d\n", snap.BreakevenTrades)
	fmt.Printf("Win Rate:        %.2f%%\n", snap.WinRate)
	fmt.Println()
	fmt.Println("P&L")
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Gross P/L:       %.2f\n", snap.GrossPL)
	fmt.Printf("Net P/L:         %.2f\n", snap.NetPL)
	fmt.Printf("Gross Profit:    %.2f\n", snap.GrossProfit)
	fmt.Printf("Gross Loss:      %.2f\n", snap.GrossLoss)
	fmt.Printf("Commission:      %.2f\n", snap.TotalCommission)
	fmt.Printf("Average Win:     %.2f\n", snap.AverageWin)
	fmt.Printf("Average Loss:    %.2f\n", snap.AverageLoss)
	fmt.Printf("Largest Win:     %.2f\n", snap.LargestWin)
	fmt.Printf("Largest Loss:    %.2f\n", snap.LargestLoss)
	fmt.Printf("Expectancy:      %.2f\n", snap.Expectancy)

	if math.IsInf(snap.ProfitFactor, 1) {
		fmt.Printf("Profit Factor:   inf\n")
	} else {
		fmt.Printf("Profit Factor:   %.2f\n", snap.ProfitFactor)
	}

	fmt.Printf("Max Drawdown:    %.2f (%.2f%%)\n", snap.MaxDrawdown, snap.MaxDrawdownPct)
	return nil
}
