package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shepherd/pkg/types"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CANARY_SERVICE", "api")
	t.Setenv("HEALTH_URL", "http://localhost:8080/health")
	t.Setenv("METRICS_URL", "http://localhost:9090")
	t.Setenv("DATABASE_DSN", "postgres://localhost/app?sslmode=disable")
	t.Setenv("BACKUP_DIR", "/var/backups/app")
	t.Setenv("DEPLOY_ENV_FILE", "/opt/app/.env")
	t.Setenv("SMOKE_TEST_CMD", "/opt/app/smoke-test.sh")
}

func TestLoadEnumeratesAllMissingVariables(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HEALTH_URL", "")
	t.Setenv("BACKUP_DIR", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	// Every missing variable is named, not just the first.
	assert.Contains(t, err.Error(), "HEALTH_URL")
	assert.Contains(t, err.Error(), "BACKUP_DIR")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SHEPHERD_DATA_DIR", "")
	t.Setenv("AUDIT_LOG", "")
	t.Setenv("EXPECTED_TABLES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/backups/app", cfg.DataDir, "data dir falls back to the backup dir")
	assert.Equal(t, "/var/backups/app/shepherd-audit.log", cfg.AuditLog)
	assert.Empty(t, cfg.ExpectedTables)
}

func TestLoadParsesExpectedTables(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EXPECTED_TABLES", "orders, customers ,sessions")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "customers", "sessions"}, cfg.ExpectedTables)
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr bool
	}{
		{"default plan is valid", func(p *Plan) {}, false},
		{"empty ladder", func(p *Plan) { p.Ladder = nil }, true},
		{"ladder not increasing", func(p *Plan) { p.Ladder = []int{5, 50, 20} }, true},
		{"duplicate rung", func(p *Plan) { p.Ladder = []int{5, 5, 20} }, true},
		{"percentage over 100", func(p *Plan) { p.Ladder = []int{5, 120} }, true},
		{"zero percentage", func(p *Plan) { p.Ladder = []int{0, 20} }, true},
		{"zero checks per step", func(p *Plan) { p.ChecksPerStep = 0 }, true},
		{"zero failure threshold", func(p *Plan) { p.FailureThreshold = 0 }, true},
		{"zero max retries", func(p *Plan) { p.MaxRetries = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := DefaultPlan()
			tt.mutate(&plan)
			err := plan.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadPlanFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := "ladder: [10, 40, 100]\nchecks_per_step: 5\ncheck_interval: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 40, 100}, plan.Ladder)
	assert.Equal(t, 5, plan.ChecksPerStep)
	assert.Equal(t, 30*time.Second, plan.CheckInterval)
	// Unset fields keep their defaults.
	assert.Equal(t, 3, plan.FailureThreshold)
	assert.Equal(t, 2, plan.MaxRetries)
}

func TestLoadPlanRejectsInvalidLadder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ladder: [50, 20]\n"), 0600))

	_, err := LoadPlan(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
