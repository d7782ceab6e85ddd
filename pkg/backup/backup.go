package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// SnapshotStore creates and restores point-in-time snapshots of persisted
// state. Restore always takes an implicit pre-restore safety backup as a
// second safety net before replacing anything.
type SnapshotStore interface {
	// Create takes a snapshot and returns its record
	Create(ctx context.Context, trigger types.BackupTrigger) (*types.BackupRecord, error)

	// Restore replaces persisted state from the identified snapshot
	Restore(ctx context.Context, id string) error

	// List returns all known snapshots, oldest first
	List() ([]*types.BackupRecord, error)

	// Latest returns the most recent snapshot by modification time
	Latest() (*types.BackupRecord, error)
}

const filenamePrefix = "shepherd-"

// snapshotFilename builds the timestamped artifact name for a new snapshot.
func snapshotFilename(now time.Time) string {
	return filenamePrefix + now.Format("20060102-150405") + ".dump"
}

// listDumpFiles returns the snapshot artifacts in dir sorted oldest first by
// modification time. Discovery is filesystem-based so snapshots created by
// hand are still restorable.
func listDumpFiles(dir string) ([]*types.BackupRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var recs []*types.BackupRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".dump") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		recs = append(recs, &types.BackupRecord{
			ID:        entry.Name(),
			Filename:  filepath.Join(dir, entry.Name()),
			CreatedAt: info.ModTime(),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	return recs, nil
}
