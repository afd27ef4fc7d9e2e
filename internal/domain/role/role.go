package role

import (
	"context"
	"errors"
	"slices"

	"github.com/rpggio/leadboard/internal/domain/activity"
)

// CurrentRoleKey is the state key holding the selected role id.
const CurrentRoleKey = "currentRole"

// ErrUnknownRole is returned when changing to a role that is not configured.
var ErrUnknownRole = errors.New("unknown role")

// Role describes a dashboard persona.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Color       string `json:"color"`
}

var defaultRoles = []Role{
	{ID: "User", Name: "User", Description: "Standard user dashboard", Path: "/user-dashboard/demo", Color: "blue"},
	{ID: "Admin", Name: "Admin", Description: "Administrative controls", Path: "/admin-dashboard/demo", Color: "red"},
	{ID: "Production Partner", Name: "Production Partner", Description: "Partner management", Path: "/partner-dashboard/demo", Color: "green"},
}

// DefaultRoles returns the built-in roles. The first is the default.
func DefaultRoles() []Role {
	return slices.Clone(defaultRoles)
}

// StateRepository persists the selected role.
type StateRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ActivityRecorder receives role change events.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
