package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeLeadCreated       ActivityType = "lead_created"
	TypeLeadUpdated       ActivityType = "lead_updated"
	TypeLeadMoved         ActivityType = "lead_moved"
	TypeLeadDeleted       ActivityType = "lead_deleted"
	TypeLeadTagsUpdated   ActivityType = "lead_tags_updated"
	TypePipelineRefreshed ActivityType = "pipeline_refreshed"
	TypeRoleChanged       ActivityType = "role_changed"
)

// ActivityEntry represents an event in the dashboard activity feed
type ActivityEntry struct {
	ID           int64        `json:"id"`
	LeadID       *string      `json:"lead_id,omitempty"`
	Stage        string       `json:"stage,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
