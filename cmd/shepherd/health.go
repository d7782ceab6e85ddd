package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Inspect target service health",
}

var healthCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one full check cycle and print the results",
	Long: `Run all four health probes once: liveness, circuit breaker, error
budget and smoke test. Exits non-zero if any probe fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		results, failures := d.agg.RunCycle(cmd.Context())

		for _, r := range results {
			status := "PASS"
			if !r.Pass {
				status = "FAIL"
			}
			fmt.Printf("%-16s %-4s %8s  %s\n", r.Type, status, r.Duration.Round(time.Millisecond), r.Message)
		}

		// Supplementary gauges, informational only.
		if up, err := d.querier.Up(cmd.Context(), d.cfg.ServiceName); err == nil {
			fmt.Printf("\nScrape up gauge:            %.0f\n", up)
		}
		if mean, err := d.querier.RequestDuration(cmd.Context(), d.cfg.ServiceName); err == nil {
			fmt.Printf("Mean request duration (5m): %.3fs\n", mean)
		}

		if failures > 0 {
			return fmt.Errorf("%d of %d checks failed", failures, len(results))
		}
		fmt.Println("\nAll checks passed.")
		return nil
	},
}

func init() {
	healthCmd.AddCommand(healthCheckCmd)
}
