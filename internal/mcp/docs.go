package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `planweave manages project plans as Projects → Phases → Microtasks.

Core concepts:
- Project: a plan document with phases, team and metadata. Progress is derived
  from microtask completion and recomputed on every read.
- Phase: an ordered stage of the plan, optionally ending in a milestone.
- Microtask: the unit of work; carries estimates, priority and dependencies.
- Saving is automatic: edits are coalesced and written a moment after you stop
  editing. toggle_microtask saves immediately. get_project reports sync_state
  and dirty so you can see whether a save is pending.

Default workflow:
1) Orient: list_projects, then get_project for the one you need.
2) Plan: generate_breakdown for a fresh phase tree, or add_phase/add_microtask
   to build one by hand.
3) Execute: toggle_microtask as work completes; progress updates automatically.
4) Review: optimize_project for suggestions; get_save_history for an audit trail.
5) If a save fails (the result says dirty=true), fix the cause and call
   flush_project to retry; edits are never lost in between.

Docs:
- planweave://docs/concepts (data model + saving semantics)
- planweave://docs/workflows (common tool sequences)
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
		URI:         "planweave://docs/concepts",
		Name:        "docs_concepts",
		Title:       "planweave concepts",
		Description: "Data model and saving semantics.",
		Content: `# planweave concepts

## Data model

- **Project**: title, description, team, metadata, and an ordered list of phases.
- **Phase**: name, estimate in days, milestone flag, ordered microtasks.
- **Microtask**: name, estimated/actual hours, priority (low/medium/high/critical),
  complexity (simple/moderate/complex), tags, dependencies, completion state.

Derived values are never stored authoritatively: progress percentages are
recomputed from microtask completion on every read, and a completed_at
timestamp exists exactly when a microtask is completed.

## Saving

Edits buffer locally and save automatically about half a second after the
last change, so bursts of edits become one write. Completion toggles skip the
wait and save immediately. Every save replaces the whole document; the last
writer wins.

A failed save keeps your edits buffered (` + "`dirty: true`" + ` in tool results) and
does not retry on its own. Any further edit or an explicit ` + "`flush_project`" + `
retries the save.
`,
	},
	{
		URI:         "planweave://docs/workflows",
		Name:        "docs_workflows",
		Title:       "planweave workflows",
		Description: "Common tool sequences for planning and tracking.",
		Content: `# planweave workflows

## Start a plan from scratch

1. ` + "`create_project`" + ` with a title and metadata.
2. ` + "`generate_breakdown`" + ` with a description of the goal. The generated
   phases replace the project's current phases atomically.
3. Adjust with ` + "`update_phase`" + ` / ` + "`update_microtask`" + `.

## Track execution

1. ` + "`toggle_microtask`" + ` as work finishes; actual hours default to the
   estimate unless set explicitly first.
2. ` + "`get_project`" + ` to read progress, which is always derived fresh.
3. ` + "`optimize_project`" + ` for suggestions; the result is cached until the
   plan's structure changes or a week passes, and ` + "`force: true`" + ` bypasses
   the cache.

## Recover from a failed save

1. A tool result with ` + "`dirty: true`" + ` and ` + "`sync_state: \"idle\"`" + ` means the
   last save failed and edits are waiting.
2. Call ` + "`flush_project`" + ` to retry. Nothing is lost while you wait.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

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
