package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/shepherd/pkg/config"
	"github.com/cuemby/shepherd/pkg/types"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a snapshot now",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		if pause, _ := cmd.Flags().GetBool("pause"); pause {
			d.snapshots.WithWorkloadPause(d.workload, d.cfg.ServiceName)
		}

		rec, err := d.snapshots.Create(cmd.Context(), types.TriggerManual)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (%d bytes)\n", rec.ID, rec.SizeBytes)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		recs, err := d.snapshots.List()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No snapshots found.")
			return nil
		}
		for _, rec := range recs {
			fmt.Printf("%-40s %s  %10d bytes\n", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.SizeBytes)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [backup-id]",
	Short: "Restore a snapshot (most recent when no id given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		var id string
		if len(args) == 1 {
			id = args[0]
		} else {
			latest, err := d.snapshots.Latest()
			if err != nil {
				return err
			}
			id = latest.ID
			fmt.Printf("No id given, restoring most recent snapshot %s\n", id)
		}

		if err := d.snapshots.Restore(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", id)
		return nil
	},
}

func init() {
	backupCreateCmd.Flags().Bool("pause", false, "Stop the service while the snapshot is taken")
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}

// setupCommand loads configuration, initializes logging and wires the
// dependency bundle for one command run.
func setupCommand(cmd *cobra.Command) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := initLogging(cmd, cfg); err != nil {
		return nil, err
	}
	return buildDeps(cfg)
}
