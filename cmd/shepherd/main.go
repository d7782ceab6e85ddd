package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/shepherd/pkg/config"
	"github.com/cuemby/shepherd/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	defer log.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shepherd",
	Short: "Shepherd - Progressive rollout and rollback controller",
	Long: `Shepherd rolls a new service implementation out behind a
percentage-based canary and rolls it back deterministically when health
signals degrade.

Risky changes go live for 5% of traffic before they go live for all of it,
and every recovery path is gated by a safety backup and validated after it
runs.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Shepherd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs")

	rootCmd.AddCommand(canaryCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)
}

// initLogging configures the global logger, including the durable audit file
// when configuration is available.
func initLogging(cmd *cobra.Command, cfg *config.Config) error {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")

	logCfg := log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOut,
	}
	if cfg != nil {
		logCfg.AuditFile = cfg.AuditLog
	}
	return log.Init(logCfg)
}
