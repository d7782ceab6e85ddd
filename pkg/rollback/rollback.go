package rollback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/shepherd/pkg/annotate"
	"github.com/cuemby/shepherd/pkg/backup"
	"github.com/cuemby/shepherd/pkg/configstore"
	"github.com/cuemby/shepherd/pkg/health"
	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/metrics"
	"github.com/cuemby/shepherd/pkg/storage"
	"github.com/cuemby/shepherd/pkg/types"
	"github.com/cuemby/shepherd/pkg/workload"
)

// ConfirmPhrase must be typed by the operator before any state-changing
// stage runs.
const ConfirmPhrase = "ROLLBACK"

// Request describes one rollback invocation.
type Request struct {
	Type     types.RollbackType
	Reason   string
	BackupID string
	ImageTag string

	// NoConfirm skips the interactive confirmation gate. Intended for
	// automation only.
	NoConfirm bool
}

// Orchestrator executes rollback operations. Stages run in strict order,
// each with its own bounded timeout; any stage failure aborts the remaining
// stages and leaves the operation Failed with its safety backup preserved.
type Orchestrator struct {
	Snapshots  backup.SnapshotStore
	Workload   workload.Controller
	Store      configstore.Store
	Aggregator *health.Aggregator
	Journal    storage.Store
	Sink       annotate.Annotator

	// Services are the workloads stopped and started during the operation
	Services []string

	// Confirm reads the operator's typed confirmation; defaults to stdin
	Confirm io.Reader

	// SettleDelay is the fixed post-start pause before validation. Observed
	// to cut false-negative smoke runs while caches warm; not a correctness
	// requirement.
	SettleDelay time.Duration

	// ReadyAttempts and ReadyInterval bound the post-start readiness poll
	ReadyAttempts int
	ReadyInterval time.Duration
}

// NewOrchestrator creates a rollback orchestrator.
func NewOrchestrator(snapshots backup.SnapshotStore, ctrl workload.Controller, store configstore.Store, agg *health.Aggregator, journal storage.Store) *Orchestrator {
	return &Orchestrator{
		Snapshots:     snapshots,
		Workload:      ctrl,
		Store:         store,
		Aggregator:    agg,
		Journal:       journal,
		Sink:          annotate.Noop{},
		SettleDelay:   30 * time.Second,
		ReadyAttempts: 12,
		ReadyInterval: 5 * time.Second,
	}
}

// Execute runs the full rollback protocol and returns the operation record.
// The record is journaled at every status transition so the audit trail
// survives a crash mid-operation.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*types.RollbackOperation, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	op := &types.RollbackOperation{
		ID:        uuid.New().String(),
		Type:      req.Type,
		Reason:    req.Reason,
		BackupID:  req.BackupID,
		ImageTag:  req.ImageTag,
		StartedAt: time.Now(),
		Status:    types.StatusPending,
	}
	logger := log.WithOperationID(op.ID)
	o.journal(op)

	// Stage 1: confirmation gate. The only point where a human may refuse.
	if !req.NoConfirm {
		if err := o.confirm(req); err != nil {
			return o.fail(op, "confirm", err), err
		}
	}

	annotate.BestEffort(ctx, o.Sink, annotate.Annotation{
		Text: fmt.Sprintf("rollback started: type=%s reason=%q", op.Type, op.Reason),
		Tags: []string{"shepherd", "rollback"},
	})

	// Stage 2: safety backup. Emergency trades this net for speed.
	if op.Type != types.RollbackEmergency {
		rec, err := o.timed("safety_backup", func() (*types.BackupRecord, error) {
			return o.Snapshots.Create(ctx, types.TriggerSafety)
		})
		if err != nil {
			err = fmt.Errorf("safety backup failed, aborting before any destructive action: %w", err)
			return o.fail(op, "safety_backup", err), err
		}
		op.SafetyBackupID = rec.ID
		logger.Info().Str("safety_backup", rec.ID).Msg("safety backup created")
	}

	// The safety-backup gate: nothing destructive may run before this holds.
	if !op.CanStart() {
		err := fmt.Errorf("operation missing safety backup, refusing to start")
		return o.fail(op, "safety_backup", err), err
	}
	op.Status = types.StatusInProgress
	o.journal(op)

	// Stage 4: stop affected workloads.
	if err := o.stage(op, "stop", func() error {
		return o.Workload.Stop(ctx, o.Services...)
	}); err != nil {
		return op, err
	}

	// Stage 5: restore data and/or retag the deployment.
	if op.Type.RestoresData() {
		if err := o.stage(op, "restore", func() error {
			return o.Snapshots.Restore(ctx, op.BackupID)
		}); err != nil {
			return op, err
		}
	}
	if op.Type.NeedsImageTag() {
		if err := o.stage(op, "retag", func() error {
			return o.Store.SetImageTag(op.ImageTag)
		}); err != nil {
			return op, err
		}
	}

	// Stage 6: start and wait for readiness.
	if err := o.stage(op, "start", func() error {
		if err := o.Workload.Start(ctx, o.Services...); err != nil {
			return err
		}
		return o.Workload.WaitReady(ctx, o.ReadyAttempts, o.ReadyInterval)
	}); err != nil {
		return op, err
	}

	// Stage 7: settle before validation.
	if o.SettleDelay > 0 {
		logger.Info().Dur("delay", o.SettleDelay).Msg("settling before validation")
		select {
		case <-time.After(o.SettleDelay):
		case <-ctx.Done():
			err := fmt.Errorf("%w: settle interrupted: %v", types.ErrStageTimeout, ctx.Err())
			return o.fail(op, "settle", err), err
		}
	}

	// Stage 8: post-rollback validation. A failing smoke test does not fail
	// the operation, it flags the system as not yet trustworthy; rolling
	// back further is an operator decision, never automatic.
	result := o.Aggregator.SmokeTest(ctx)
	op.SmokeTestPassed = result.Pass
	if result.Pass {
		logger.Info().Msg("post-rollback smoke test passed")
	} else {
		logger.Warn().Str("detail", result.Message).Msg("post-rollback smoke test FAILED: system restored but not yet validated")
	}

	op.Status = types.StatusCompleted
	op.Stage = "done"
	op.FinishedAt = time.Now()
	o.journal(op)
	metrics.RollbacksTotal.WithLabelValues(string(op.Type), string(op.Status)).Inc()

	// Stage 9: annotation, best-effort.
	annotate.BestEffort(ctx, o.Sink, annotate.Annotation{
		Text: fmt.Sprintf("rollback completed: type=%s smoke_test_passed=%t", op.Type, op.SmokeTestPassed),
		Tags: []string{"shepherd", "rollback"},
	})

	logger.Info().
		Str("type", string(op.Type)).
		Dur("duration", op.FinishedAt.Sub(op.StartedAt)).
		Bool("smoke_test_passed", op.SmokeTestPassed).
		Msg("rollback operation completed")
	return op, nil
}

// validate enforces the per-type mandatory inputs before anything runs.
func validate(req Request) error {
	switch req.Type {
	case types.RollbackDatabaseOnly, types.RollbackApplication, types.RollbackCompleteSystem, types.RollbackEmergency:
	default:
		return fmt.Errorf("%w: unknown rollback type %q", types.ErrConfiguration, req.Type)
	}
	if req.Reason == "" {
		return fmt.Errorf("%w: a reason is required for the audit trail", types.ErrConfiguration)
	}
	if req.Type.NeedsBackup() && req.BackupID == "" {
		return fmt.Errorf("%w: rollback type %s requires a backup id", types.ErrConfiguration, req.Type)
	}
	if req.Type.NeedsImageTag() && req.ImageTag == "" {
		return fmt.Errorf("%w: rollback type %s requires an image tag", types.ErrConfiguration, req.Type)
	}
	return nil
}

// confirm reads the typed confirmation phrase from the operator.
func (o *Orchestrator) confirm(req Request) error {
	in := o.Confirm
	if in == nil {
		return fmt.Errorf("no confirmation input available; use --no-confirm for automation")
	}

	fmt.Printf("About to run a %s rollback (reason: %s).\n", req.Type, req.Reason)
	fmt.Printf("Type %s to proceed: ", ConfirmPhrase)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("confirmation aborted")
	}
	if strings.TrimSpace(scanner.Text()) != ConfirmPhrase {
		return fmt.Errorf("confirmation phrase did not match, aborting")
	}
	return nil
}

// stage runs one orchestration stage, journaling progress and timing it.
// A stage error marks the operation Failed and is returned unchanged.
func (o *Orchestrator) stage(op *types.RollbackOperation, name string, fn func() error) error {
	logger := log.WithOperationID(op.ID)
	logger.Info().Str("stage", name).Msg("stage starting")

	op.Stage = name
	o.journal(op)

	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		o.fail(op, name, err)
		return err
	}
	logger.Info().Str("stage", name).Dur("duration", time.Since(start)).Msg("stage complete")
	return nil
}

// timed wraps a stage that produces a value.
func (o *Orchestrator) timed(name string, fn func() (*types.BackupRecord, error)) (*types.BackupRecord, error) {
	start := time.Now()
	rec, err := fn()
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return rec, err
}

// fail finalizes the operation as Failed and tells the operator exactly
// where it stopped and which safety backup survives for manual recovery.
func (o *Orchestrator) fail(op *types.RollbackOperation, stage string, err error) *types.RollbackOperation {
	op.Status = types.StatusFailed
	op.Stage = stage
	op.Error = err.Error()
	op.FinishedAt = time.Now()
	o.journal(op)
	metrics.RollbacksTotal.WithLabelValues(string(op.Type), string(op.Status)).Inc()

	logger := log.WithOperationID(op.ID)
	event := logger.Error().
		Str("stage", stage).
		Err(err)
	if op.SafetyBackupID != "" {
		event = event.Str("safety_backup", op.SafetyBackupID)
	}
	event.Msg("rollback aborted; manual intervention required, no automatic retry will run")

	annotate.BestEffort(context.Background(), o.Sink, annotate.Annotation{
		Text: fmt.Sprintf("rollback FAILED at stage %s: %v", stage, err),
		Tags: []string{"shepherd", "rollback", "failed"},
	})
	return op
}

// journal persists the operation record; journal failures are logged, never
// fatal to the operation itself.
func (o *Orchestrator) journal(op *types.RollbackOperation) {
	if o.Journal == nil {
		return
	}
	if err := o.Journal.SaveOperation(op); err != nil {
		logger := log.WithOperationID(op.ID)
		logger.Warn().Err(err).Msg("failed to journal operation")
	}
}
