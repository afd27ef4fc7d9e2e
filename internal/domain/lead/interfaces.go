package lead

import (
	"context"

	"github.com/rpggio/leadboard/internal/domain/activity"
)

// LeadAPI is the remote lead management service.
type LeadAPI interface {
	ListLeadsByStage(ctx context.Context) (map[string][]Lead, error)
	StageTags(ctx context.Context, stage string) ([]string, error)
	CreateLead(ctx context.Context, stage string, draft Draft) (*Lead, error)
	UpdateLead(ctx context.Context, id string, patch Patch) (*Lead, error)
	MoveLead(ctx context.Context, id, fromStage, toStage string) (*Lead, error)
	DeleteLead(ctx context.Context, id string) error
	UpdateTags(ctx context.Context, id string, tags []string) (*Lead, error)
}

// StateRepository is the local key/value state used for the refresh timestamp.
type StateRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ActivityRecorder receives an entry for each successful pipeline change.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
