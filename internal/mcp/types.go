package mcp

import (
	"time"

	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/domain/calendar"
	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/rpggio/leadboard/internal/domain/role"
)

type EmptyParams struct{}

type StageParams struct {
	Stage string `json:"stage" jsonschema:"pipeline stage title"`
}

type AddLeadParams struct {
	Stage      string   `json:"stage" jsonschema:"stage to add the lead to"`
	Name       string   `json:"name" jsonschema:"lead name"`
	LoanType   string   `json:"loan_type,omitempty" jsonschema:"loan product, e.g. Conventional or FHA"`
	LoanAmount float64  `json:"loan_amount,omitempty" jsonschema:"requested loan amount, not negative"`
	Tags       []string `json:"tags,omitempty" jsonschema:"initial tags"`
}

type UpdateLeadParams struct {
	ID         string    `json:"id" jsonschema:"lead id"`
	Name       *string   `json:"name,omitempty" jsonschema:"new name"`
	LoanType   *string   `json:"loan_type,omitempty" jsonschema:"new loan type"`
	LoanAmount *float64  `json:"loan_amount,omitempty" jsonschema:"new loan amount"`
	Tags       *[]string `json:"tags,omitempty" jsonschema:"replacement tag list"`
}

type MoveLeadParams struct {
	ID        string `json:"id" jsonschema:"lead id"`
	FromStage string `json:"from_stage" jsonschema:"stage the lead is currently in"`
	ToStage   string `json:"to_stage" jsonschema:"destination stage"`
}

type LeadIDParams struct {
	ID string `json:"id" jsonschema:"lead id"`
}

type UpdateLeadTagsParams struct {
	ID   string   `json:"id" jsonschema:"lead id"`
	Tags []string `json:"tags" jsonschema:"replacement tag list"`
}

type ToggleStageTagParams struct {
	Stage string `json:"stage"`
	Tag   string `json:"tag"`
}

type ChangeRoleParams struct {
	Role string `json:"role"`
}

type EventsParams struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
}

type AddEventParams struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	Category string `json:"category,omitempty"`
	Repeat   bool   `json:"repeat,omitempty"`
}

type UpdateEventParams struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	Category string `json:"category,omitempty"`
}

type IDParams struct {
	ID string `json:"id"`
}

type AddTaskParams struct {
	Title    string              `json:"title"`
	Date     string              `json:"date"`
	Status   calendar.TaskStatus `json:"status,omitempty"`
	Category string              `json:"category,omitempty"`
}

type TaskStatusParams struct {
	ID     string              `json:"id"`
	Status calendar.TaskStatus `json:"status"`
}

type RecentActivityParams struct {
	LeadID *string                `json:"lead_id,omitempty"`
	Stage  string                 `json:"stage,omitempty"`
	Type   *activity.ActivityType `json:"type,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
	Offset int                    `json:"offset,omitempty"`
}

type StatusResponse struct {
	Loading       bool       `json:"loading"`
	Loaded        bool       `json:"loaded"`
	Error         string     `json:"error,omitempty"`
	LastRefreshed *time.Time `json:"last_refreshed,omitempty"`
}

type StageLeads struct {
	Stage string      `json:"stage"`
	Leads []lead.Lead `json:"leads"`
}

type PipelineResponse struct {
	Stages []StageLeads    `json:"stages"`
	Status StatusResponse  `json:"status"`
	Totals MetricsResponse `json:"metrics"`
}

type StageMetricsResponse struct {
	Stage          string  `json:"stage"`
	Count          int     `json:"count"`
	AvgTimeInStage string  `json:"avg_time_in_stage"`
	Conversion     float64 `json:"conversion"`
	Value          float64 `json:"value"`
}

type MetricsResponse struct {
	TotalLeads        int                    `json:"total_leads"`
	ConversionRate    float64                `json:"conversion_rate"`
	AvgTimeInPipeline string                 `json:"avg_time_in_pipeline"`
	TotalValue        float64                `json:"total_value"`
	Stages            []StageMetricsResponse `json:"stages"`
}

type StageViewResponse struct {
	lead.StageView
	AvgTimeInStage string `json:"avg_time_in_stage"`
}

// LeadResult reports a lead mutation. Applied is false when the id was
// unknown and nothing changed.
type LeadResult struct {
	Lead    *lead.Lead `json:"lead,omitempty"`
	Applied bool       `json:"applied"`
}

type StageTagsResponse struct {
	Stage string   `json:"stage"`
	Tags  []string `json:"tags"`
}

type CurrentRoleResponse struct {
	Current string    `json:"current"`
	Config  role.Role `json:"config"`
}

type TasksResponse struct {
	Tasks    []calendar.Task                         `json:"tasks"`
	ByStatus map[calendar.TaskStatus][]calendar.Task `json:"by_status"`
}

type StatusOK struct {
	Status string `json:"status"`
}
