package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/metrics"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Controller status endpoints",
}

var statusServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve controller status and metrics over HTTP",
	Long: `Expose /healthz with the persisted rollout state and the most recent
rollback operation, and /metrics with the controller's own telemetry.`,
	RunE: runStatusServe,
}

func init() {
	statusServeCmd.Flags().String("addr", ":9109", "Listen address")
	statusCmd.AddCommand(statusServeCmd)
}

func runStatusServe(cmd *cobra.Command, args []string) error {
	d, err := setupCommand(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	addr, _ := cmd.Flags().GetString("addr")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now(),
		}
		if state, err := d.journal.GetRolloutState(); err == nil {
			body["rollout"] = state
		}
		if op, err := d.journal.LatestOperation(); err == nil {
			body["last_operation"] = op
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	logger := log.WithComponent("status")
	logger.Info().Str("addr", addr).Msg("status server listening")

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
