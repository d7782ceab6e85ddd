package types

import (
	"errors"
	"time"
)

// Error categories used across the controller. Probe-level failures are
// downgraded to failing check results and never surface as errors; these
// sentinels classify everything that does surface.
var (
	// ErrConfiguration indicates a missing or invalid configuration value.
	// Always fatal: the process must exit non-zero without taking action.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnectivity indicates an unreachable probe target. Callers convert
	// this to a failing check result rather than propagating it.
	ErrConnectivity = errors.New("connectivity error")

	// ErrValidation indicates a failed smoke test or structural check. Drives
	// state-machine transitions (rollback, disable) rather than crashes.
	ErrValidation = errors.New("validation error")

	// ErrStageTimeout indicates a stop/start/restore stage exceeded its
	// bounded wait. Fatal to the current operation only.
	ErrStageTimeout = errors.New("stage timeout")
)

// DisabledStep is the distinguished RolloutState index meaning the canary
// has been switched off entirely.
const DisabledStep = -1

// RolloutState is the single piece of mutable canary state. It is created at
// controller start from the currently configured percentage and mutated only
// by the controller's control loop.
type RolloutState struct {
	Ladder        []int     `json:"ladder"`
	StepIndex     int       `json:"step_index"`
	RetryCount    int       `json:"retry_count"`
	MaxRetries    int       `json:"max_retries"`
	CycleFailures int       `json:"cycle_failures"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Valid reports whether the state satisfies its index invariant: StepIndex is
// either DisabledStep or a valid index into the ladder.
func (s *RolloutState) Valid() bool {
	if len(s.Ladder) == 0 {
		return false
	}
	if s.StepIndex == DisabledStep {
		return true
	}
	return s.StepIndex >= 0 && s.StepIndex < len(s.Ladder)
}

// Percentage returns the traffic percentage for the current step, or 0 when
// the canary is disabled.
func (s *RolloutState) Percentage() int {
	if s.StepIndex == DisabledStep {
		return 0
	}
	return s.Ladder[s.StepIndex]
}

// Outcome is the terminal result of a canary rollout.
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeDisabled           Outcome = "disabled"
	OutcomeMaxRetriesExceeded Outcome = "max_retries_exceeded"
)

// CheckType identifies one of the four health probes.
type CheckType string

const (
	CheckLiveness       CheckType = "liveness"
	CheckCircuitBreaker CheckType = "circuit_breaker"
	CheckErrorBudget    CheckType = "error_budget"
	CheckSmokeTest      CheckType = "smoke_test"
)

// CheckResult is the outcome of a single health probe. Ephemeral: produced
// once per cycle and consumed immediately, never persisted.
type CheckResult struct {
	Type      CheckType
	Pass      bool
	RawValue  string
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// RollbackType selects a recovery strategy.
type RollbackType string

const (
	RollbackDatabaseOnly   RollbackType = "database"
	RollbackApplication    RollbackType = "application"
	RollbackCompleteSystem RollbackType = "system"
	RollbackEmergency      RollbackType = "emergency"
)

// NeedsBackup reports whether the strategy requires a restore point as input.
func (t RollbackType) NeedsBackup() bool {
	switch t {
	case RollbackDatabaseOnly, RollbackApplication, RollbackCompleteSystem:
		return true
	}
	return false
}

// NeedsImageTag reports whether the strategy redeploys the application and
// therefore requires a target image tag.
func (t RollbackType) NeedsImageTag() bool {
	return t == RollbackApplication || t == RollbackCompleteSystem
}

// RestoresData reports whether the strategy restores persisted state.
func (t RollbackType) RestoresData() bool {
	return t == RollbackDatabaseOnly || t == RollbackApplication || t == RollbackCompleteSystem
}

// OperationStatus tracks a rollback operation's lifecycle. Transitions are
// strictly forward; a Failed operation is never resurrected.
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusInProgress OperationStatus = "in_progress"
	StatusCompleted  OperationStatus = "completed"
	StatusFailed     OperationStatus = "failed"
)

// RollbackOperation is the audit record for one orchestrator invocation.
type RollbackOperation struct {
	ID             string          `json:"id"`
	Type           RollbackType    `json:"type"`
	Reason         string          `json:"reason"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at,omitempty"`
	SafetyBackupID string          `json:"safety_backup_id,omitempty"`
	BackupID       string          `json:"backup_id,omitempty"`
	ImageTag       string          `json:"image_tag,omitempty"`
	Status         OperationStatus `json:"status"`
	Stage          string          `json:"stage,omitempty"`
	Error          string          `json:"error,omitempty"`

	// SmokeTestPassed records post-rollback validation. A completed operation
	// with a failed smoke test is surfaced distinctly from a stage failure.
	SmokeTestPassed bool `json:"smoke_test_passed"`
}

// CanStart reports whether the operation may transition to InProgress. Every
// type except Emergency must have a safety backup recorded first.
func (op *RollbackOperation) CanStart() bool {
	if op.Type == RollbackEmergency {
		return true
	}
	return op.SafetyBackupID != ""
}

// BackupTrigger records why a backup was taken.
type BackupTrigger string

const (
	TriggerManual    BackupTrigger = "manual"
	TriggerSafety    BackupTrigger = "safety"
	TriggerScheduled BackupTrigger = "scheduled"
)

// BackupRecord describes one snapshot artifact. Immutable once written;
// retention is an external concern.
type BackupRecord struct {
	ID        string        `json:"id"`
	Filename  string        `json:"filename"`
	CreatedAt time.Time     `json:"created_at"`
	SizeBytes int64         `json:"size_bytes"`
	Trigger   BackupTrigger `json:"trigger"`

	// RowCounts captures per-table record counts at backup time, used for
	// the post-restore audit comparison.
	RowCounts map[string]int64 `json:"row_counts,omitempty"`
}
