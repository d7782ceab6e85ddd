package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/shepherd/pkg/config"
	"github.com/cuemby/shepherd/pkg/lockfile"
	"github.com/cuemby/shepherd/pkg/rollback"
	"github.com/cuemby/shepherd/pkg/types"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll the system back to a known-good state",
	Long: `Run a rollback operation.

Four strategies are available:
  database     restore the database from a backup, keep the running image
  application  restore the database and redeploy a previous image
  system       full recovery: database restore plus image redeploy
  emergency    stop/start only, no backup and no restore (fastest path)

Every strategy except emergency takes a safety backup before touching
anything. When no --type is given an interactive menu is shown.

Examples:
  # Restore last night's database snapshot
  shepherd rollback --type database --backup shepherd-20240101-030000.dump --reason "bad migration"

  # Redeploy the previous image and matching data
  shepherd rollback --type system --backup shepherd-20240101-030000.dump --image-tag v1.4.2 --reason "canary failure"

  # Bounce a hung deployment
  shepherd rollback --type emergency --reason "workload hung" --no-confirm`,
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().String("type", "", "Rollback type (database|application|system|emergency)")
	rollbackCmd.Flags().String("backup", "", "Backup filename to restore")
	rollbackCmd.Flags().String("image-tag", "", "Image tag to redeploy")
	rollbackCmd.Flags().String("reason", "", "Reason for the rollback (required, recorded in the audit trail)")
	rollbackCmd.Flags().Bool("no-confirm", false, "Skip the confirmation prompt (automation only)")
	rollbackCmd.Flags().Bool("last", false, "Show the most recent rollback operation and exit")
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := initLogging(cmd, cfg); err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.close()

	if showLast, _ := cmd.Flags().GetBool("last"); showLast {
		return printLastOperation(d)
	}

	req := rollback.Request{}
	req.Reason, _ = cmd.Flags().GetString("reason")
	req.BackupID, _ = cmd.Flags().GetString("backup")
	req.ImageTag, _ = cmd.Flags().GetString("image-tag")
	req.NoConfirm, _ = cmd.Flags().GetBool("no-confirm")

	typeFlag, _ := cmd.Flags().GetString("type")
	if typeFlag == "" {
		typeFlag, err = menuSelectType(d)
		if err != nil {
			return err
		}
	}
	req.Type = types.RollbackType(typeFlag)

	lock, err := lockfile.Acquire(d.lockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	// The orchestrator takes its own safety backup before any destructive
	// stage, so the restore must not add a second one.
	orch := rollback.NewOrchestrator(d.snapshots.WithoutImplicitSafety(), d.workload, d.store, d.agg, d.journal)
	orch.Sink = d.sink
	orch.Services = []string{cfg.ServiceName}
	orch.Confirm = os.Stdin

	op, err := orch.Execute(cmd.Context(), req)
	if err != nil {
		if op != nil {
			fmt.Fprintf(os.Stderr, "\nOperation %s FAILED at stage %q: %v\n", op.ID, op.Stage, err)
			if op.SafetyBackupID != "" {
				fmt.Fprintf(os.Stderr, "Safety backup %s is preserved for manual recovery.\n", op.SafetyBackupID)
			}
		}
		return err
	}

	fmt.Printf("\nOperation %s completed.\n", op.ID)
	if op.SafetyBackupID != "" {
		fmt.Printf("Safety backup: %s\n", op.SafetyBackupID)
	}
	if !op.SmokeTestPassed {
		fmt.Println("WARNING: post-rollback smoke test failed. The system is restored but not validated.")
	}
	return nil
}

// menuSelectType shows the interactive strategy menu.
func menuSelectType(d *deps) (string, error) {
	backups, err := d.snapshots.List()
	if err == nil && len(backups) > 0 {
		latest := backups[len(backups)-1]
		fmt.Printf("Most recent backup: %s (%s)\n\n", latest.ID, latest.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	fmt.Println("Select rollback type:")
	fmt.Println("  1) database     - restore database only")
	fmt.Println("  2) application  - restore database and redeploy image")
	fmt.Println("  3) system       - full system recovery")
	fmt.Println("  4) emergency    - stop/start only")
	fmt.Print("Choice [1-4]: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("selection aborted")
	}
	switch strings.TrimSpace(scanner.Text()) {
	case "1":
		return string(types.RollbackDatabaseOnly), nil
	case "2":
		return string(types.RollbackApplication), nil
	case "3":
		return string(types.RollbackCompleteSystem), nil
	case "4":
		return string(types.RollbackEmergency), nil
	}
	return "", fmt.Errorf("invalid selection")
}

// printLastOperation dumps the most recent journal entry.
func printLastOperation(d *deps) error {
	op, err := d.journal.LatestOperation()
	if err != nil {
		return err
	}
	fmt.Printf("Operation:      %s\n", op.ID)
	fmt.Printf("Type:           %s\n", op.Type)
	fmt.Printf("Status:         %s\n", op.Status)
	fmt.Printf("Stage:          %s\n", op.Stage)
	fmt.Printf("Reason:         %s\n", op.Reason)
	fmt.Printf("Started:        %s\n", op.StartedAt.Format("2006-01-02 15:04:05"))
	if !op.FinishedAt.IsZero() {
		fmt.Printf("Finished:       %s\n", op.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	if op.SafetyBackupID != "" {
		fmt.Printf("Safety backup:  %s\n", op.SafetyBackupID)
	}
	if op.Error != "" {
		fmt.Printf("Error:          %s\n", op.Error)
	}
	return nil
}
