package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// Config holds all environment-driven settings for the controller.
type Config struct {
	// Target service under canary.
	ServiceName string // CANARY_SERVICE
	HealthURL   string // HEALTH_URL
	APIKey      string // SERVICE_API_KEY

	// Metrics query endpoint (Prometheus HTTP API base URL).
	MetricsURL string // METRICS_URL

	// Persisted store credentials.
	DatabaseDSN string // DATABASE_DSN

	// Backup storage.
	BackupDir string // BACKUP_DIR

	// Deployment configuration file edited in place by the controller.
	EnvFile string // DEPLOY_ENV_FILE

	// Compose project used for workload stop/start.
	ComposeFile    string // COMPOSE_FILE (optional, compose default applies)
	ComposeProject string // COMPOSE_PROJECT (optional)

	// Smoke-test executable.
	SmokeTestCmd string // SMOKE_TEST_CMD

	// Observability sink (optional, best-effort).
	GrafanaURL   string // GRAFANA_URL
	GrafanaToken string // GRAFANA_TOKEN

	// Durable audit log path (optional, defaults next to the backup dir).
	AuditLog string // AUDIT_LOG

	// State database for operation journal and backup catalog.
	DataDir string // SHEPHERD_DATA_DIR

	// Tables expected in the persisted store, checked after every restore
	// (optional, comma-separated).
	ExpectedTables []string // EXPECTED_TABLES
}

// required maps environment variable names to Config field setters. Optional
// variables are read separately in Load.
var required = []string{
	"CANARY_SERVICE",
	"HEALTH_URL",
	"METRICS_URL",
	"DATABASE_DSN",
	"BACKUP_DIR",
	"DEPLOY_ENV_FILE",
	"SMOKE_TEST_CMD",
}

// Load reads configuration from the environment. Every missing required
// variable is collected so the failure names all of them at once; the
// controller never proceeds with partial configuration.
func Load() (*Config, error) {
	var missing []string
	get := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		ServiceName:  get("CANARY_SERVICE"),
		HealthURL:    get("HEALTH_URL"),
		MetricsURL:   get("METRICS_URL"),
		DatabaseDSN:  get("DATABASE_DSN"),
		BackupDir:    get("BACKUP_DIR"),
		EnvFile:      get("DEPLOY_ENV_FILE"),
		SmokeTestCmd: get("SMOKE_TEST_CMD"),

		APIKey:         os.Getenv("SERVICE_API_KEY"),
		ComposeFile:    os.Getenv("COMPOSE_FILE"),
		ComposeProject: os.Getenv("COMPOSE_PROJECT"),
		GrafanaURL:     os.Getenv("GRAFANA_URL"),
		GrafanaToken:   os.Getenv("GRAFANA_TOKEN"),
		AuditLog:       os.Getenv("AUDIT_LOG"),
		DataDir:        os.Getenv("SHEPHERD_DATA_DIR"),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required environment variables: %s",
			types.ErrConfiguration, strings.Join(missing, ", "))
	}

	if raw := os.Getenv("EXPECTED_TABLES"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.ExpectedTables = append(cfg.ExpectedTables, t)
			}
		}
	}

	if cfg.DataDir == "" {
		cfg.DataDir = cfg.BackupDir
	}
	if cfg.AuditLog == "" {
		cfg.AuditLog = cfg.DataDir + "/shepherd-audit.log"
	}
	return cfg, nil
}

// Plan describes the rollout parameters: the percentage ladder and the check
// budget per step. Loaded from a YAML file or defaulted.
type Plan struct {
	Ladder           []int
	ChecksPerStep    int
	CheckInterval    time.Duration
	FailureThreshold int
	MaxRetries       int
}

// DefaultPlan returns the standard rollout plan.
func DefaultPlan() Plan {
	return Plan{
		Ladder:           []int{5, 20, 50, 100},
		ChecksPerStep:    3,
		CheckInterval:    60 * time.Second,
		FailureThreshold: 3,
		MaxRetries:       2,
	}
}

// Validate checks plan invariants: a non-empty strictly increasing ladder and
// positive budgets.
func (p Plan) Validate() error {
	if len(p.Ladder) == 0 {
		return fmt.Errorf("%w: rollout plan has an empty ladder", types.ErrConfiguration)
	}
	for i, pct := range p.Ladder {
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("%w: ladder percentage %d out of range", types.ErrConfiguration, pct)
		}
		if i > 0 && pct <= p.Ladder[i-1] {
			return fmt.Errorf("%w: ladder must be strictly increasing", types.ErrConfiguration)
		}
	}
	if p.ChecksPerStep <= 0 || p.FailureThreshold <= 0 || p.MaxRetries <= 0 {
		return fmt.Errorf("%w: checks_per_step, failure_threshold and max_retries must be positive", types.ErrConfiguration)
	}
	return nil
}
