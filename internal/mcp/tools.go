package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools exposes the pipeline methods as MCP tools.
func registerTools(server *sdkmcp.Server, h *Handler) {
	addTool[EmptyParams](server, h, "load_pipeline", "pipeline.refresh",
		"Reload every lead from the CRM. Returns leads by stage, load status and metrics.")
	addTool[EmptyParams](server, h, "get_pipeline", "pipeline.snapshot",
		"Return the locally cached leads by stage without contacting the CRM.")
	addTool[EmptyParams](server, h, "get_metrics", "pipeline.metrics",
		"Return total leads, conversion rate, average days in pipeline (d:hh) and per-stage figures.")
	addTool[AddLeadParams](server, h, "add_lead", "lead.add",
		"Create a lead in a stage. Only the name is required; the loan amount must not be negative.")
	addTool[UpdateLeadParams](server, h, "update_lead", "lead.update",
		"Change fields of a lead. Omitted fields are left unchanged.")
	addTool[MoveLeadParams](server, h, "move_lead", "lead.move",
		"Move a lead from its current stage to another stage.")
	addTool[LeadIDParams](server, h, "delete_lead", "lead.delete",
		"Delete a lead.")
	addTool[StageParams](server, h, "get_stage_tags", "stage.tags",
		"List the tags available in a stage.")
	addTool[UpdateLeadTagsParams](server, h, "update_lead_tags", "lead.tags",
		"Replace the tags of a lead. Duplicates are removed.")
}

func addTool[In any](server *sdkmcp.Server, h *Handler, name, method, description string) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			params, err := json.Marshal(in)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
			}
			result, err := h.Handle(ctx, method, params)
			if err != nil {
				return nil, nil, err
			}
			return textResult(result)
		})
}

func textResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
