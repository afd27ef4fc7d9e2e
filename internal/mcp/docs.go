package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `leadboard manages a loan-origination sales pipeline backed by a CRM.

Leads sit in exactly one stage. Stages are ordered; the last one (Closed by default) counts as converted.

Workflow:
1) Orient: get_pipeline for the cached board, or load_pipeline to pull fresh data from the CRM.
2) Inspect: get_metrics for totals, conversion and average days in pipeline (d:hh).
3) Change: add_lead, update_lead, move_lead, delete_lead, update_lead_tags.
   - move_lead needs the stage the lead is in now; reload if it reports NOT_IN_STAGE.
   - Changes show immediately and are reverted if the CRM rejects them (REMOTE_ERROR). Nothing is retried automatically.
4) Tags: get_stage_tags lists the vocabulary of a stage.

Docs:
- leadboard://docs/pipeline (stages, metrics and error codes)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "leadboard://docs/pipeline",
		Name:        "docs_pipeline",
		Title:       "Pipeline reference",
		Description: "Stages, metric definitions and error codes.",
		Content: `# Pipeline reference

## Stages

New Lead, Contacted, Application Started, Pre-Approved, In Underwriting, Closed.
The server may be configured with a different list; the last stage is terminal.

## Metrics

- total_leads: leads across all stages.
- conversion_rate: percent of leads in the terminal stage.
- avg_time_in_pipeline: mean time since creation of leads not yet closed, as d:hh.
- per stage conversion: percent of all leads at or beyond that stage.
- per stage avg_time_in_stage: mean time since the lead was last updated (or created).

## Error codes

- INVALID_INPUT: a field failed validation (blank name, negative amount).
- INVALID_STAGE: the stage is not part of the pipeline.
- NOT_IN_STAGE: the lead is not in the given source stage.
- REMOTE_ERROR: the CRM rejected the call; local state was restored.
- METHOD_NOT_FOUND / INVALID_PARAMS: malformed request.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
