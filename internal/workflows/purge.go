package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/touristroute/internal/core/usecases"
)

// PurgeInput is the input for the purge workflow.
type PurgeInput struct {
	MaxAge time.Duration
}

// PurgeWorkflow removes search history and navigation state older than
// MaxAge. It is started on a cron schedule by the janitor.
func PurgeWorkflow(ctx workflow.Context, input PurgeInput) (*usecases.PurgeResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.MaxAge <= 0 {
		return nil, temporal.NewNonRetryableApplicationError("max age must be positive", "InvalidInput", errors.New("invalid max age"))
	}
	logger.Info("Starting purge workflow", "maxAge", input.MaxAge.String())

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	})

	var a *RetentionActivities
	var res usecases.PurgeResult
	if err := workflow.ExecuteActivity(ctx, a.PurgeExpired, input.MaxAge).Get(ctx, &res); err != nil {
		return nil, err
	}

	logger.Info("Purge finished", "searches", res.Searches, "states", res.States)
	return &res, nil
}
