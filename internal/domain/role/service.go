package role

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/repository"
)

// Service selects and persists the active dashboard role.
type Service struct {
	state    StateRepository
	activity ActivityRecorder
	logger   *slog.Logger
	roles    []Role
}

// NewService creates a role service. activity may be nil.
func NewService(state StateRepository, recorder ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		state:    state,
		activity: recorder,
		logger:   logger,
		roles:    DefaultRoles(),
	}
}

// Roles lists the available roles.
func (s *Service) Roles() []Role {
	return slices.Clone(s.roles)
}

// Current returns the persisted role id. Missing, unknown or unreadable
// values fall back to the default role.
func (s *Service) Current(ctx context.Context) string {
	id, err := s.state.Get(ctx, CurrentRoleKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("reading current role failed", "error", err)
		}
		return s.roles[0].ID
	}
	if _, ok := s.find(id); !ok {
		s.logger.Warn("ignoring unknown stored role", "role", id)
		return s.roles[0].ID
	}
	return id
}

// CurrentConfig returns the configuration of the current role.
func (s *Service) CurrentConfig(ctx context.Context) Role {
	r, _ := s.find(s.Current(ctx))
	return r
}

// Change selects and persists a new role.
func (s *Service) Change(ctx context.Context, id string) (Role, error) {
	r, ok := s.find(id)
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, id)
	}
	previous := s.Current(ctx)
	if err := s.state.Set(ctx, CurrentRoleKey, r.ID); err != nil {
		return Role{}, fmt.Errorf("saving role: %w", err)
	}

	if s.activity != nil && previous != r.ID {
		entry := &activity.ActivityEntry{
			ActivityType: activity.TypeRoleChanged,
			Summary:      fmt.Sprintf("Role changed from %s to %s", previous, r.ID),
		}
		if err := s.activity.LogActivity(ctx, entry); err != nil {
			s.logger.Warn("recording role change failed", "error", err)
		}
	}
	return r, nil
}

func (s *Service) find(id string) (Role, bool) {
	for _, r := range s.roles {
		if r.ID == id {
			return r, true
		}
	}
	return s.roles[0], false
}
