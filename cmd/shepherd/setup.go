package main

import (
	"strings"

	"github.com/cuemby/shepherd/pkg/annotate"
	"github.com/cuemby/shepherd/pkg/backup"
	"github.com/cuemby/shepherd/pkg/config"
	"github.com/cuemby/shepherd/pkg/configstore"
	"github.com/cuemby/shepherd/pkg/health"
	"github.com/cuemby/shepherd/pkg/metrics"
	"github.com/cuemby/shepherd/pkg/storage"
	"github.com/cuemby/shepherd/pkg/workload"
)

// deps bundles the wired collaborators every command needs.
type deps struct {
	cfg       *config.Config
	store     *configstore.EnvFileStore
	workload  *workload.ComposeController
	snapshots *backup.PostgresStore
	agg       *health.Aggregator
	querier   *metrics.QueryClient
	journal   storage.Store
	sink      annotate.Annotator
}

// buildDeps wires production collaborators from the environment config.
func buildDeps(cfg *config.Config) (*deps, error) {
	store, err := configstore.NewEnvFileStore(cfg.EnvFile)
	if err != nil {
		return nil, err
	}

	ctrl := workload.NewComposeController(cfg.ComposeFile, cfg.ComposeProject)

	journal, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	snapshots := backup.NewPostgresStore(cfg.DatabaseDSN, cfg.BackupDir, cfg.ExpectedTables).
		WithCatalog(journal)

	querier := metrics.NewQueryClient(cfg.MetricsURL)

	liveness := health.NewLivenessChecker(cfg.HealthURL, cfg.ServiceName).
		WithAPIKey(cfg.APIKey)
	breaker := health.NewCircuitBreakerChecker(cfg.ServiceName, querier)
	errorLog := health.NewErrorLogChecker(cfg.ServiceName, ctrl)
	smoke := health.NewSmokeTestChecker(strings.Fields(cfg.SmokeTestCmd))

	agg := health.NewAggregator(liveness, breaker, errorLog, smoke)

	var sink annotate.Annotator = annotate.Noop{}
	if cfg.GrafanaURL != "" {
		sink = annotate.NewGrafana(cfg.GrafanaURL, cfg.GrafanaToken)
	}

	return &deps{
		cfg:       cfg,
		store:     store,
		workload:  ctrl,
		snapshots: snapshots,
		agg:       agg,
		querier:   querier,
		journal:   journal,
		sink:      sink,
	}, nil
}

// close releases resources held by the dependency bundle.
func (d *deps) close() {
	if d.journal != nil {
		_ = d.journal.Close()
	}
}

// lockPath is where the exclusive operation lock lives.
func (d *deps) lockPath() string {
	return d.cfg.DataDir + "/shepherd.lock"
}
