package mocks

import (
	"context"

	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/stretchr/testify/mock"
)

// StateRepository is a mock for repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *StateRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *StateRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// LeadAPI is a mock for lead.LeadAPI.
type LeadAPI struct {
	mock.Mock
}

func (m *LeadAPI) ListLeadsByStage(ctx context.Context) (map[string][]lead.Lead, error) {
	args := m.Called(ctx)
	if byStage, ok := args.Get(0).(map[string][]lead.Lead); ok {
		return byStage, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadAPI) StageTags(ctx context.Context, stage string) ([]string, error) {
	args := m.Called(ctx, stage)
	if tags, ok := args.Get(0).([]string); ok {
		return tags, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadAPI) CreateLead(ctx context.Context, stage string, draft lead.Draft) (*lead.Lead, error) {
	args := m.Called(ctx, stage, draft)
	if l, ok := args.Get(0).(*lead.Lead); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadAPI) UpdateLead(ctx context.Context, id string, patch lead.Patch) (*lead.Lead, error) {
	args := m.Called(ctx, id, patch)
	if l, ok := args.Get(0).(*lead.Lead); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadAPI) MoveLead(ctx context.Context, id, fromStage, toStage string) (*lead.Lead, error) {
	args := m.Called(ctx, id, fromStage, toStage)
	if l, ok := args.Get(0).(*lead.Lead); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadAPI) DeleteLead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *LeadAPI) UpdateTags(ctx context.Context, id string, tags []string) (*lead.Lead, error) {
	args := m.Called(ctx, id, tags)
	if l, ok := args.Get(0).(*lead.Lead); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}
