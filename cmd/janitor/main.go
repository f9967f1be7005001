package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/touristroute/internal/adapters/postgres"
	"github.com/samirrijal/touristroute/internal/core/usecases"
	"github.com/samirrijal/touristroute/internal/pkg/config"
	"github.com/samirrijal/touristroute/internal/pkg/logging"
	"github.com/samirrijal/touristroute/internal/workflows"
)

const purgeWorkflowID = "touristroute-purge"

func main() {
	cfg, err := config.Load("touristroute-janitor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "touristroute-janitor")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	history := usecases.NewHistoryService(postgres.NewSearchRepo(db), postgres.NewStateRepo(db))
	w.RegisterWorkflow(workflows.PurgeWorkflow)
	w.RegisterActivity(&workflows.RetentionActivities{History: history})

	// The cron workflow survives worker restarts; starting it again with the
	// same ID is a no-op while it is running.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           purgeWorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Temporal.PurgeSchedule,
	}, workflows.PurgeWorkflow, workflows.PurgeInput{MaxAge: cfg.Temporal.Retention()})
	if err != nil {
		slog.Warn("schedule purge workflow", "error", err)
	} else {
		slog.Info("purge workflow scheduled", "workflow_id", run.GetID(), "cron", cfg.Temporal.PurgeSchedule)
	}

	slog.Info("janitor worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
