package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/domain/calendar"
	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/rpggio/leadboard/internal/domain/role"
)

// PipelineService defines pipeline operations needed by the handler.
type PipelineService interface {
	Load(ctx context.Context) error
	ManualRefresh(ctx context.Context) error
	Stages() []string
	Snapshot() map[string][]lead.Lead
	Status() lead.Status
	Metrics() lead.Metrics
	StageView(stage string) (lead.StageView, error)
	AddLead(ctx context.Context, stage string, draft lead.Draft) (*lead.Lead, error)
	UpdateLead(ctx context.Context, id string, patch lead.Patch) (*lead.Lead, error)
	MoveLead(ctx context.Context, id, fromStage, toStage string) (*lead.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	GetStageTags(ctx context.Context, stage string) ([]string, error)
	UpdateLeadTags(ctx context.Context, id string, tags []string) (*lead.Lead, error)
	ToggleStageTag(ctx context.Context, stage, tag string) error
}

// RoleService defines role operations needed by the handler.
type RoleService interface {
	Roles() []role.Role
	Current(ctx context.Context) string
	CurrentConfig(ctx context.Context) role.Role
	Change(ctx context.Context, id string) (role.Role, error)
}

// CalendarService defines calendar and task operations needed by the handler.
type CalendarService interface {
	FilterEvents(ctx context.Context, category, search string) []calendar.Event
	AddEvent(ctx context.Context, in calendar.EventInput) ([]calendar.Event, error)
	UpdateEvent(ctx context.Context, id string, in calendar.EventInput) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	Tasks(ctx context.Context) []calendar.Task
	TasksByStatus(ctx context.Context) map[calendar.TaskStatus][]calendar.Task
	AddTask(ctx context.Context, in calendar.TaskInput) (*calendar.Task, error)
	SetTaskStatus(ctx context.Context, id string, status calendar.TaskStatus) (*calendar.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// ActivityService defines activity operations needed by the handler.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by the handler.
type Services struct {
	Pipeline PipelineService
	Roles    RoleService
	Calendar CalendarService
	Activity ActivityService
}

// Handler dispatches RPC methods.
type Handler struct {
	pipeline PipelineService
	roles    RoleService
	calendar CalendarService
	activity ActivityService
}

// NewHandler creates a new RPC handler.
func NewHandler(svc Services) *Handler {
	return &Handler{
		pipeline: svc.Pipeline,
		roles:    svc.Roles,
		calendar: svc.Calendar,
		activity: svc.Activity,
	}
}

// Handle dispatches RPC requests to domain services.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "pipeline.load", "pipeline.refresh":
		load := h.pipeline.Load
		if method == "pipeline.refresh" {
			load = h.pipeline.ManualRefresh
		}
		if err := load(ctx); err != nil {
			return nil, err
		}
		return h.pipelineResponse(), nil
	case "pipeline.snapshot":
		return h.pipelineResponse(), nil
	case "pipeline.status":
		return statusResponse(h.pipeline.Status()), nil
	case "pipeline.metrics":
		return metricsResponse(h.pipeline.Stages(), h.pipeline.Metrics()), nil
	case "pipeline.stage":
		var req StageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		view, err := h.pipeline.StageView(req.Stage)
		if err != nil {
			return nil, err
		}
		return StageViewResponse{StageView: view, AvgTimeInStage: lead.FormatDays(view.Metrics.AvgTimeInStage)}, nil
	case "lead.add":
		var req AddLeadParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		l, err := h.pipeline.AddLead(ctx, req.Stage, lead.Draft{
			Name:       req.Name,
			LoanType:   req.LoanType,
			LoanAmount: req.LoanAmount,
			Tags:       req.Tags,
		})
		return leadResult(l, err)
	case "lead.update":
		var req UpdateLeadParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := requireID(req.ID); err != nil {
			return nil, err
		}
		l, err := h.pipeline.UpdateLead(ctx, req.ID, lead.Patch{
			Name:       req.Name,
			LoanType:   req.LoanType,
			LoanAmount: req.LoanAmount,
			Tags:       req.Tags,
		})
		return leadResult(l, err)
	case "lead.move":
		var req MoveLeadParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := requireID(req.ID); err != nil {
			return nil, err
		}
		l, err := h.pipeline.MoveLead(ctx, req.ID, req.FromStage, req.ToStage)
		return leadResult(l, err)
	case "lead.delete":
		var req LeadIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := requireID(req.ID); err != nil {
			return nil, err
		}
		if err := h.pipeline.DeleteLead(ctx, req.ID); err != nil {
			return nil, err
		}
		return StatusOK{Status: "deleted"}, nil
	case "lead.tags":
		var req UpdateLeadTagsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := requireID(req.ID); err != nil {
			return nil, err
		}
		l, err := h.pipeline.UpdateLeadTags(ctx, req.ID, req.Tags)
		return leadResult(l, err)
	case "stage.tags":
		var req StageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		tags, err := h.pipeline.GetStageTags(ctx, req.Stage)
		if err != nil {
			return nil, err
		}
		return StageTagsResponse{Stage: req.Stage, Tags: tags}, nil
	case "stage.toggle_tag":
		var req ToggleStageTagParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.pipeline.ToggleStageTag(ctx, req.Stage, req.Tag); err != nil {
			return nil, err
		}
		return StatusOK{Status: "ok"}, nil
	case "role.list":
		return h.roles.Roles(), nil
	case "role.get":
		return CurrentRoleResponse{Current: h.roles.Current(ctx), Config: h.roles.CurrentConfig(ctx)}, nil
	case "role.change":
		var req ChangeRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.roles.Change(ctx, req.Role)
	case "calendar.events":
		var req EventsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.calendar.FilterEvents(ctx, req.Category, req.Search), nil
	case "calendar.add":
		var req AddEventParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.calendar.AddEvent(ctx, calendar.EventInput{
			Title:    req.Title,
			Start:    req.Start,
			Category: req.Category,
			Repeat:   req.Repeat,
		})
	case "calendar.update":
		var req UpdateEventParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.calendar.UpdateEvent(ctx, req.ID, calendar.EventInput{
			Title:    req.Title,
			Start:    req.Start,
			Category: req.Category,
		})
	case "calendar.delete":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.calendar.DeleteEvent(ctx, req.ID); err != nil {
			return nil, err
		}
		return StatusOK{Status: "deleted"}, nil
	case "task.list":
		return TasksResponse{Tasks: h.calendar.Tasks(ctx), ByStatus: h.calendar.TasksByStatus(ctx)}, nil
	case "task.add":
		var req AddTaskParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.calendar.AddTask(ctx, calendar.TaskInput{
			Title:    req.Title,
			Date:     req.Date,
			Status:   req.Status,
			Category: req.Category,
		})
	case "task.status":
		var req TaskStatusParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.calendar.SetTaskStatus(ctx, req.ID, req.Status)
	case "task.delete":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.calendar.DeleteTask(ctx, req.ID); err != nil {
			return nil, err
		}
		return StatusOK{Status: "deleted"}, nil
	case "activity.recent":
		var req RecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.activity.GetRecentActivity(ctx, activity.ListActivityOptions{
			LeadID:       req.LeadID,
			Stage:        req.Stage,
			ActivityType: req.Type,
			Limit:        req.Limit,
			Offset:       req.Offset,
		})
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []activity.ActivityEntry{}
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func (h *Handler) pipelineResponse() PipelineResponse {
	stages := h.pipeline.Stages()
	snapshot := h.pipeline.Snapshot()
	resp := PipelineResponse{
		Stages: make([]StageLeads, 0, len(stages)),
		Status: statusResponse(h.pipeline.Status()),
		Totals: metricsResponse(stages, h.pipeline.Metrics()),
	}
	for _, stage := range stages {
		leads := snapshot[stage]
		if leads == nil {
			leads = []lead.Lead{}
		}
		resp.Stages = append(resp.Stages, StageLeads{Stage: stage, Leads: leads})
	}
	return resp
}

func statusResponse(st lead.Status) StatusResponse {
	resp := StatusResponse{Loading: st.Loading, Loaded: st.Loaded}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	if !st.LastRefreshed.IsZero() {
		ts := st.LastRefreshed.UTC().Truncate(time.Second)
		resp.LastRefreshed = &ts
	}
	return resp
}

func metricsResponse(stages []string, m lead.Metrics) MetricsResponse {
	resp := MetricsResponse{
		TotalLeads:        m.TotalLeads,
		ConversionRate:    m.ConversionRate,
		AvgTimeInPipeline: lead.FormatDays(m.AvgTimeInPipeline),
		TotalValue:        m.TotalValue,
		Stages:            make([]StageMetricsResponse, 0, len(stages)),
	}
	for _, stage := range stages {
		sm := m.Stages[stage]
		resp.Stages = append(resp.Stages, StageMetricsResponse{
			Stage:          stage,
			Count:          sm.Count,
			AvgTimeInStage: lead.FormatDays(sm.AvgTimeInStage),
			Conversion:     sm.Conversion,
			Value:          sm.Value,
		})
	}
	return resp
}

func leadResult(l *lead.Lead, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return LeadResult{Lead: l, Applied: l != nil}, nil
}

func requireID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidParams)
	}
	return nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}
