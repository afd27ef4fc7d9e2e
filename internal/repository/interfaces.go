package repository

import (
	"context"

	"github.com/rpggio/leadboard/internal/domain/activity"
)

// StateRepository is the local key/value store backing the dashboard's
// persisted UI state (selected role, calendar events, tasks, refresh time).
// Get returns ErrNotFound for a missing key.
type StateRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ActivityRepository manages activity log persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}
