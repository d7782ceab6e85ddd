package storage

import (
	"github.com/cuemby/shepherd/pkg/types"
)

// Store is the controller's durable record keeping: the rollback operation
// journal, the backup catalog, and rollout state snapshots.
type Store interface {
	// Operations
	SaveOperation(op *types.RollbackOperation) error
	GetOperation(id string) (*types.RollbackOperation, error)
	ListOperations() ([]*types.RollbackOperation, error)
	LatestOperation() (*types.RollbackOperation, error)

	// Backups
	SaveBackup(rec *types.BackupRecord) error
	GetBackup(id string) (*types.BackupRecord, error)
	ListBackups() ([]*types.BackupRecord, error)

	// Rollout state snapshots (keyed by a fixed singleton key)
	SaveRolloutState(state *types.RolloutState) error
	GetRolloutState() (*types.RolloutState, error)

	// Utility
	Close() error
}
