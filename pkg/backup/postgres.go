package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/metrics"
	"github.com/cuemby/shepherd/pkg/storage"
	"github.com/cuemby/shepherd/pkg/types"
	"github.com/cuemby/shepherd/pkg/workload"

	_ "github.com/lib/pq"
)

// PostgresStore snapshots a Postgres database with pg_dump/pg_restore.
// A snapshot must complete inside the time budget or fail explicitly; a
// hanging backup tool must never block the controller.
type PostgresStore struct {
	// DSN is the database connection string, also passed to the dump tools
	DSN string

	// Dir is where snapshot artifacts are written
	Dir string

	// ExpectedTables drive the post-restore structural validation
	ExpectedTables []string

	// Workload, when set, is paused around Create to avoid connection
	// contention during the snapshot
	Workload workload.Controller

	// PauseServices are the services paused during a snapshot
	PauseServices []string

	// Catalog records snapshot metadata; optional
	Catalog storage.Store

	// TimeBudget bounds both dump and restore subprocess runs
	TimeBudget time.Duration

	// implicitSafety takes a safety backup before every restore. On by
	// default for direct CLI restores; the rollback orchestrator switches it
	// off because it already took one before any destructive stage.
	implicitSafety bool

	// Subprocess and row-count seams, replaced in tests.
	run       toolRunner
	countRows func(ctx context.Context) (map[string]int64, error)
}

// toolRunner executes one backup-tool invocation.
type toolRunner func(ctx context.Context, name string, args ...string) error

// NewPostgresStore creates a snapshot store for the given database and
// backup directory.
func NewPostgresStore(dsn, dir string, expectedTables []string) *PostgresStore {
	return &PostgresStore{
		DSN:            dsn,
		Dir:            dir,
		ExpectedTables: expectedTables,
		TimeBudget:     3 * time.Minute,
		implicitSafety: true,
	}
}

// WithoutImplicitSafety disables the automatic pre-restore safety backup.
// Callers that already hold a safety backup for the operation use this to
// keep the operation at exactly one.
func (p *PostgresStore) WithoutImplicitSafety() *PostgresStore {
	p.implicitSafety = false
	return p
}

// WithWorkloadPause pauses the given services while a snapshot is taken.
func (p *PostgresStore) WithWorkloadPause(ctrl workload.Controller, services ...string) *PostgresStore {
	p.Workload = ctrl
	p.PauseServices = services
	return p
}

// WithCatalog records snapshot metadata in the given store.
func (p *PostgresStore) WithCatalog(catalog storage.Store) *PostgresStore {
	p.Catalog = catalog
	return p
}

// Create takes a snapshot and returns its record
func (p *PostgresStore) Create(ctx context.Context, trigger types.BackupTrigger) (*types.BackupRecord, error) {
	logger := log.WithComponent("backup")
	start := time.Now()

	if err := os.MkdirAll(p.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if p.Workload != nil && len(p.PauseServices) > 0 {
		logger.Info().Strs("services", p.PauseServices).Msg("pausing workload for snapshot")
		if err := p.Workload.Stop(ctx, p.PauseServices...); err != nil {
			return nil, fmt.Errorf("failed to pause workload for snapshot: %w", err)
		}
		defer func() {
			if err := p.Workload.Start(ctx, p.PauseServices...); err != nil {
				logger.Error().Err(err).Msg("failed to resume workload after snapshot")
			}
		}()
	}

	filename := filepath.Join(p.Dir, snapshotFilename(start))
	if err := p.runTool(ctx, "pg_dump", "--format=custom", "--file", filename, p.DSN); err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}

	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("snapshot artifact missing after dump: %w", err)
	}

	counts, err := p.rowCounts(ctx)
	if err != nil {
		// Counts are audit data, not a gate on the snapshot itself.
		logger.Warn().Err(err).Msg("failed to capture row counts")
	}

	rec := &types.BackupRecord{
		ID:        filepath.Base(filename),
		Filename:  filename,
		CreatedAt: start,
		SizeBytes: info.Size(),
		Trigger:   trigger,
		RowCounts: counts,
	}

	if p.Catalog != nil {
		if err := p.Catalog.SaveBackup(rec); err != nil {
			logger.Warn().Err(err).Msg("failed to catalog backup record")
		}
	}

	metrics.BackupsTotal.WithLabelValues(string(trigger)).Inc()
	metrics.BackupDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Str("backup", rec.ID).
		Str("trigger", string(trigger)).
		Int64("size_bytes", rec.SizeBytes).
		Dur("duration", time.Since(start)).
		Msg("snapshot created")
	return rec, nil
}

// Restore replaces persisted state from the identified snapshot. A direct
// restore takes an implicit safety backup first; the orchestrator path
// suppresses it, having already taken one before any destructive stage.
func (p *PostgresStore) Restore(ctx context.Context, id string) error {
	logger := log.WithComponent("backup")

	rec, err := p.find(id)
	if err != nil {
		return err
	}

	preCounts, err := p.rowCounts(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to capture pre-restore row counts")
	}

	if p.implicitSafety {
		if _, err := p.Create(ctx, types.TriggerSafety); err != nil {
			return fmt.Errorf("pre-restore safety backup failed: %w", err)
		}
	}

	logger.Info().Str("backup", rec.ID).Msg("restoring snapshot")

	// --single-transaction makes the replacement atomic: either the whole
	// restore applies or none of it does.
	err = p.runTool(ctx, "pg_restore",
		"--clean", "--if-exists", "--single-transaction",
		"--dbname", p.DSN, rec.Filename)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	if err := p.validateStructure(ctx); err != nil {
		return err
	}

	postCounts, err := p.rowCounts(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to capture post-restore row counts")
	}

	logger.Info().
		Str("backup", rec.ID).
		Interface("rows_before", preCounts).
		Interface("rows_after", postCounts).
		Msg("restore complete")
	return nil
}

// List returns all known snapshots, oldest first
func (p *PostgresStore) List() ([]*types.BackupRecord, error) {
	return listDumpFiles(p.Dir)
}

// Latest returns the most recent snapshot by modification time
func (p *PostgresStore) Latest() (*types.BackupRecord, error) {
	recs, err := p.List()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no snapshots found in %s", p.Dir)
	}
	return recs[len(recs)-1], nil
}

// find resolves a snapshot id (bare filename or full path) to its record.
func (p *PostgresStore) find(id string) (*types.BackupRecord, error) {
	recs, err := p.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.ID == id || rec.Filename == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("snapshot not found: %s", id)
}

// validateStructure verifies the expected tables exist after a restore.
func (p *PostgresStore) validateStructure(ctx context.Context) error {
	if len(p.ExpectedTables) == 0 {
		return nil
	}

	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database for validation: %w", err)
	}
	defer db.Close()

	var missing []string
	for _, table := range p.ExpectedTables {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("structural validation query failed: %w", err)
		}
		if !exists {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: restored database is missing tables: %s",
			types.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// rowCounts captures per-table record counts for the audit trail.
func (p *PostgresStore) rowCounts(ctx context.Context) (map[string]int64, error) {
	if p.countRows != nil {
		return p.countRows(ctx)
	}
	if len(p.ExpectedTables) == 0 {
		return nil, nil
	}

	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	counts := make(map[string]int64, len(p.ExpectedTables))
	for _, table := range p.ExpectedTables {
		var count int64
		// Table names come from operator configuration, not user input.
		q := fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)
		if err := db.QueryRowContext(ctx, q).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

// runTool executes one backup-tool subprocess inside the time budget.
func (p *PostgresStore) runTool(ctx context.Context, name string, args ...string) error {
	if p.run != nil {
		return p.run(ctx, name, args...)
	}

	toolCtx, cancel := context.WithTimeout(ctx, p.TimeBudget)
	defer cancel()

	cmd := exec.CommandContext(toolCtx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if toolCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %s exceeded %v", types.ErrStageTimeout, name, p.TimeBudget)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %v (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
