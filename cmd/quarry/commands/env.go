package commands

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quarrydata/quarry/am"
	"github.com/quarrydata/quarry/client"
	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/db"
	"github.com/quarrydata/quarry/engine"
	"github.com/quarrydata/quarry/graphql"
	"github.com/quarrydata/quarry/internal/httpclient"
	"github.com/quarrydata/quarry/logger"
)

// env is the per-command wiring: config, database and the engine stack.
type env struct {
	cfg        *am.Config
	conn       *sql.DB
	datasets   *dataset.Store
	executions *engine.Store
	runner     *engine.Runner
	detector   *engine.StuckDetector
	api        *client.LocalAPI
}

// openEnv loads configuration, opens the migrated database and wires the
// engine. Callers must Close.
func openEnv() (*env, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	conn, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	datasets := dataset.NewStore(conn)
	executions := engine.NewStore(conn)
	checkpoints := engine.NewCheckpointStore(conn)

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	hc := httpclient.NewSaferClient(timeout)
	if !cfg.API.BlockPrivateIPs {
		hc.AllowPrivateHosts()
	}
	gql := graphql.NewClientWithHTTP(hc, logger.Logger)
	fetcher := graphql.NewFetcher(gql, cfg.Engine.PageDelayMS, cfg.Engine.MaxPages, logger.Logger)
	orch := engine.NewDependentOrchestrator(fetcher, gql, checkpoints, cfg.Engine.CheckpointEvery, cfg.Engine.MaxPages, logger.Logger)
	invoker := engine.NewHTTPRemoteInvokerWithClient(hc, logger.Logger)
	resolver := dataset.NewResolver(datasets, logger.Logger)
	runner := engine.NewRunner(datasets, resolver, executions, fetcher, orch, invoker, logger.Logger)

	stuckThreshold := time.Duration(cfg.Engine.StuckAfterMinutes) * time.Minute
	detector := engine.NewStuckDetector(executions, stuckThreshold, logger.Logger)
	api := client.NewLocalAPI(datasets, executions, runner, stuckThreshold, logger.Logger)

	return &env{
		cfg:        cfg,
		conn:       conn,
		datasets:   datasets,
		executions: executions,
		runner:     runner,
		detector:   detector,
		api:        api,
	}, nil
}

func (e *env) Close() {
	e.conn.Close()
}

// pollConfig maps the loaded client configuration onto polling bounds.
func (e *env) pollConfig() client.PollConfig {
	c := e.cfg.Client
	return client.PollConfig{
		Interval:             time.Duration(c.PollIntervalMS) * time.Millisecond,
		MaxPolls:             c.MaxPolls,
		MaxConsecutiveErrors: c.MaxConsecutiveErrors,
		StuckPollThreshold:   c.StuckPollThreshold,
		StuckStartedAfter:    time.Duration(c.StuckStartedSeconds) * time.Second,
		StuckLocalAfter:      time.Duration(c.StuckLocalWaitSeconds) * time.Second,
	}
}

func (e *env) triggerConfig() client.TriggerConfig {
	c := e.cfg.Client
	return client.TriggerConfig{
		Retries: c.TriggerRetries,
		Delay:   time.Duration(c.TriggerRetryDelayMS) * time.Millisecond,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
