package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/touristroute/internal/core/usecases"
	"github.com/samirrijal/touristroute/internal/pkg/metrics"
)

// Purger is the slice of the history service the retention activities need.
type Purger interface {
	Purge(ctx context.Context, maxAge time.Duration) (*usecases.PurgeResult, error)
}

// RetentionActivities holds the activity implementations for the purge workflow.
type RetentionActivities struct {
	History Purger
}

// PurgeExpired deletes searches and state blobs older than maxAge.
func (a *RetentionActivities) PurgeExpired(ctx context.Context, maxAge time.Duration) (*usecases.PurgeResult, error) {
	res, err := a.History.Purge(ctx, maxAge)
	if err != nil {
		return nil, fmt.Errorf("purge expired: %w", err)
	}

	metrics.PurgedRows.WithLabelValues("searches").Add(float64(res.Searches))
	metrics.PurgedRows.WithLabelValues("state_blobs").Add(float64(res.States))

	activity.GetLogger(ctx).Info("purged expired rows",
		"searches", res.Searches, "states", res.States, "max_age", maxAge.String())
	return res, nil
}
