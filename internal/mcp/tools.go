package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpenna/planweave/internal/domain/generate"
	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/repository"
)

type createProjectParams struct {
	Title       string   `json:"title" jsonschema:"Project display title"`
	Description string   `json:"description,omitempty" jsonschema:"Project description"`
	Team        []string `json:"team,omitempty" jsonschema:"Team member names"`
	ProjectType string   `json:"project_type,omitempty" jsonschema:"Kind of project (e.g. web_app, mobile_app)"`
	TechStack   []string `json:"tech_stack,omitempty" jsonschema:"Technologies in use"`
	TeamSize    int      `json:"team_size,omitempty" jsonschema:"Planned team size"`
	Complexity  string   `json:"complexity,omitempty" jsonschema:"Overall complexity: simple, moderate or complex"`
}

type projectIDParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
}

type updateProjectParams struct {
	ProjectID   string   `json:"project_id" jsonschema:"Project ID"`
	Title       *string  `json:"title,omitempty" jsonschema:"New title"`
	Description *string  `json:"description,omitempty" jsonschema:"New description"`
	Team        []string `json:"team,omitempty" jsonschema:"New team member list"`
	ProjectType *string  `json:"project_type,omitempty" jsonschema:"New project type"`
	TechStack   []string `json:"tech_stack,omitempty" jsonschema:"New tech stack"`
	TeamSize    *int     `json:"team_size,omitempty" jsonschema:"New planned team size"`
	Complexity  *string  `json:"complexity,omitempty" jsonschema:"New overall complexity"`
}

type addPhaseParams struct {
	ProjectID     string  `json:"project_id" jsonschema:"Project ID"`
	Name          string  `json:"name" jsonschema:"Phase name"`
	Description   string  `json:"description,omitempty" jsonschema:"Phase description"`
	EstimatedDays float64 `json:"estimated_days,omitempty" jsonschema:"Estimated duration in days"`
	Milestone     bool    `json:"milestone,omitempty" jsonschema:"Whether the phase ends in a milestone"`
}

type updatePhaseParams struct {
	ProjectID     string     `json:"project_id" jsonschema:"Project ID"`
	PhaseID       string     `json:"phase_id" jsonschema:"Phase ID"`
	Name          *string    `json:"name,omitempty" jsonschema:"New name"`
	Description   *string    `json:"description,omitempty" jsonschema:"New description"`
	EstimatedDays *float64   `json:"estimated_days,omitempty" jsonschema:"New estimate in days"`
	Milestone     *bool      `json:"milestone,omitempty" jsonschema:"New milestone flag"`
	Risk          *riskParam `json:"risk,omitempty" jsonschema:"Risk assessment for the phase"`
}

type riskParam struct {
	Level       string   `json:"level" jsonschema:"Risk level: low, medium or high"`
	Factors     []string `json:"factors,omitempty" jsonschema:"Contributing risk factors"`
	Mitigations []string `json:"mitigations,omitempty" jsonschema:"Planned mitigations"`
}

type deletePhaseParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	PhaseID   string `json:"phase_id" jsonschema:"Phase ID to delete"`
}

type addMicrotaskParams struct {
	ProjectID      string   `json:"project_id" jsonschema:"Project ID"`
	PhaseID        string   `json:"phase_id" jsonschema:"Phase to add the microtask to"`
	Name           string   `json:"name" jsonschema:"Microtask name"`
	Description    string   `json:"description,omitempty" jsonschema:"Microtask description"`
	EstimatedHours float64  `json:"estimated_hours,omitempty" jsonschema:"Estimated effort in hours"`
	Priority       string   `json:"priority,omitempty" jsonschema:"Priority: low, medium, high or critical"`
	Complexity     string   `json:"complexity,omitempty" jsonschema:"Complexity: simple, moderate or complex"`
	Tags           []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
}

type updateMicrotaskParams struct {
	ProjectID      string   `json:"project_id" jsonschema:"Project ID"`
	MicrotaskID    string   `json:"microtask_id" jsonschema:"Microtask ID"`
	Name           *string  `json:"name,omitempty" jsonschema:"New name"`
	Description    *string  `json:"description,omitempty" jsonschema:"New description"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" jsonschema:"New estimate in hours"`
	ActualHours    *float64 `json:"actual_hours,omitempty" jsonschema:"Actual hours spent"`
	Priority       *string  `json:"priority,omitempty" jsonschema:"New priority"`
	Complexity     *string  `json:"complexity,omitempty" jsonschema:"New complexity"`
	Tags           []string `json:"tags,omitempty" jsonschema:"New tag list"`
	Notes          *string  `json:"notes,omitempty" jsonschema:"New notes"`

	// Replaces the whole dependency list when present.
	Dependencies []dependencyParam `json:"dependencies,omitempty" jsonschema:"New dependency list"`
}

type dependencyParam struct {
	TaskID string `json:"task_id" jsonschema:"ID of the microtask this one depends on"`
	Type   string `json:"type" jsonschema:"Dependency type: blocks, prerequisite or parallel"`
}

type deleteMicrotaskParams struct {
	ProjectID   string `json:"project_id" jsonschema:"Project ID"`
	MicrotaskID string `json:"microtask_id" jsonschema:"Microtask ID to delete"`
}

type toggleMicrotaskParams struct {
	ProjectID   string `json:"project_id" jsonschema:"Project ID"`
	MicrotaskID string `json:"microtask_id" jsonschema:"Microtask ID"`
	Completed   bool   `json:"completed" jsonschema:"New completion state"`
}

type generateBreakdownParams struct {
	ProjectID     string   `json:"project_id" jsonschema:"Project ID"`
	Description   string   `json:"description" jsonschema:"What the project should accomplish"`
	ProjectType   string   `json:"project_type,omitempty" jsonschema:"Kind of project"`
	TechStack     []string `json:"tech_stack,omitempty" jsonschema:"Technologies in use"`
	TeamSize      int      `json:"team_size,omitempty" jsonschema:"Planned team size"`
	Complexity    string   `json:"complexity,omitempty" jsonschema:"Overall complexity"`
	TimelineWeeks int      `json:"timeline_weeks,omitempty" jsonschema:"Target timeline in weeks"`
}

type optimizeParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Force     bool   `json:"force,omitempty" jsonschema:"Recompute even if a fresh cached result exists"`
}

type saveHistoryParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of save events"`
}

type projectResult struct {
	Project *plan.Project `json:"project"`
}

type listProjectsResult struct {
	Projects []plan.ProjectSummary `json:"projects"`
}

type statusResult struct {
	Status string `json:"status"`
}

type optimizeResult struct {
	Result *plan.OptimizationResult `json:"result"`
}

type saveHistoryResult struct {
	Events []repository.SaveEvent `json:"events"`
}

// registerTools wires every tool to the service. Schemas are inferred from
// the typed parameter structs.
func registerTools(server *sdkmcp.Server, svc *Service) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a new project plan",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in createProjectParams) (*sdkmcp.CallToolResult, projectResult, error) {
		md := &plan.Metadata{
			ProjectType: in.ProjectType,
			TechStack:   in.TechStack,
			TeamSize:    in.TeamSize,
			Complexity:  plan.Complexity(in.Complexity),
		}
		p, err := svc.CreateProject(ctx, getTenantID(ctx), in.Title, in.Description, in.Team, md)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "Get a project with its current sync status, opening it for editing",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in projectIDParams) (*sdkmcp.CallToolResult, *ProjectView, error) {
		view, err := svc.GetProject(ctx, getTenantID(ctx), in.ProjectID)
		if err != nil {
			return nil, nil, mapError(err)
		}
		return nil, view, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List all projects for the current tenant",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in struct{}) (*sdkmcp.CallToolResult, listProjectsResult, error) {
		summaries, err := svc.ListProjects(ctx, getTenantID(ctx))
		if err != nil {
			return nil, listProjectsResult{}, mapError(err)
		}
		return nil, listProjectsResult{Projects: summaries}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project permanently",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in projectIDParams) (*sdkmcp.CallToolResult, statusResult, error) {
		if err := svc.DeleteProject(ctx, getTenantID(ctx), in.ProjectID); err != nil {
			return nil, statusResult{}, mapError(err)
		}
		return nil, statusResult{Status: "deleted"}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_project",
		Description: "Update project title, description, team or metadata",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in updateProjectParams) (*sdkmcp.CallToolResult, projectResult, error) {
		upd := ProjectUpdate{
			Title:       in.Title,
			Description: in.Description,
			Team:        in.Team,
		}
		if in.ProjectType != nil || in.TechStack != nil || in.TeamSize != nil || in.Complexity != nil {
			md := currentMetadata(ctx, svc, in.ProjectID)
			if in.ProjectType != nil {
				md.ProjectType = *in.ProjectType
			}
			if in.TechStack != nil {
				md.TechStack = in.TechStack
			}
			if in.TeamSize != nil {
				md.TeamSize = *in.TeamSize
			}
			if in.Complexity != nil {
				md.Complexity = plan.Complexity(*in.Complexity)
			}
			upd.Metadata = &md
		}
		p, err := svc.UpdateProject(ctx, getTenantID(ctx), in.ProjectID, upd)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_phase",
		Description: "Add a phase to a project",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in addPhaseParams) (*sdkmcp.CallToolResult, projectResult, error) {
		p, err := svc.AddPhase(ctx, getTenantID(ctx), in.ProjectID, plan.Phase{
			Name:          in.Name,
			Description:   in.Description,
			EstimatedDays: in.EstimatedDays,
			Milestone:     in.Milestone,
		})
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_phase",
		Description: "Update fields of an existing phase",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in updatePhaseParams) (*sdkmcp.CallToolResult, projectResult, error) {
		upd := plan.PhaseUpdate{
			Name:          in.Name,
			Description:   in.Description,
			EstimatedDays: in.EstimatedDays,
			Milestone:     in.Milestone,
		}
		if in.Risk != nil {
			upd.Risk = &plan.RiskAssessment{
				Level:       plan.RiskLevel(in.Risk.Level),
				Factors:     in.Risk.Factors,
				Mitigations: in.Risk.Mitigations,
			}
		}
		p, err := svc.UpdatePhase(ctx, getTenantID(ctx), in.ProjectID, in.PhaseID, upd)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_phase",
		Description: "Delete a phase and all its microtasks",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in deletePhaseParams) (*sdkmcp.CallToolResult, projectResult, error) {
		p, err := svc.DeletePhase(ctx, getTenantID(ctx), in.ProjectID, in.PhaseID)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_microtask",
		Description: "Add a microtask to a phase",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in addMicrotaskParams) (*sdkmcp.CallToolResult, projectResult, error) {
		p, err := svc.AddMicrotask(ctx, getTenantID(ctx), in.ProjectID, in.PhaseID, plan.Microtask{
			Name:           in.Name,
			Description:    in.Description,
			EstimatedHours: in.EstimatedHours,
			Priority:       plan.Priority(in.Priority),
			Complexity:     plan.Complexity(in.Complexity),
			Tags:           in.Tags,
		})
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_microtask",
		Description: "Update fields of an existing microtask",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in updateMicrotaskParams) (*sdkmcp.CallToolResult, projectResult, error) {
		upd := plan.TaskUpdate{
			Name:           in.Name,
			Description:    in.Description,
			EstimatedHours: in.EstimatedHours,
			ActualHours:    in.ActualHours,
			Tags:           in.Tags,
			Notes:          in.Notes,
		}
		if in.Priority != nil {
			pr := plan.Priority(*in.Priority)
			upd.Priority = &pr
		}
		if in.Complexity != nil {
			cx := plan.Complexity(*in.Complexity)
			upd.Complexity = &cx
		}
		if in.Dependencies != nil {
			deps := make([]plan.Dependency, 0, len(in.Dependencies))
			for _, d := range in.Dependencies {
				deps = append(deps, plan.Dependency{
					TaskID: d.TaskID,
					Type:   plan.DependencyType(d.Type),
				})
			}
			upd.Dependencies = deps
		}
		p, err := svc.UpdateMicrotask(ctx, getTenantID(ctx), in.ProjectID, in.MicrotaskID, upd)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_microtask",
		Description: "Delete a microtask",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in deleteMicrotaskParams) (*sdkmcp.CallToolResult, projectResult, error) {
		p, err := svc.DeleteMicrotask(ctx, getTenantID(ctx), in.ProjectID, in.MicrotaskID)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "toggle_microtask",
		Description: "Mark a microtask complete or incomplete; the change is saved immediately",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in toggleMicrotaskParams) (*sdkmcp.CallToolResult, projectResult, error) {
		p, err := svc.ToggleMicrotask(ctx, getTenantID(ctx), in.ProjectID, in.MicrotaskID, in.Completed)
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "flush_project",
		Description: "Force an immediate save of unsaved edits (manual retry after a failed save)",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in projectIDParams) (*sdkmcp.CallToolResult, *ProjectView, error) {
		view, err := svc.Flush(ctx, getTenantID(ctx), in.ProjectID)
		if err != nil {
			return nil, nil, mapError(err)
		}
		return nil, view, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "generate_breakdown",
		Description: "Generate a phase and microtask breakdown, replacing the project's current phases",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in generateBreakdownParams) (*sdkmcp.CallToolResult, projectResult, error) {
		p, err := svc.GenerateBreakdown(ctx, getTenantID(ctx), in.ProjectID, generate.Request{
			Description:   in.Description,
			ProjectType:   in.ProjectType,
			TechStack:     in.TechStack,
			TeamSize:      in.TeamSize,
			Complexity:    plan.Complexity(in.Complexity),
			TimelineWeeks: in.TimelineWeeks,
		})
		if err != nil {
			return nil, projectResult{}, mapError(err)
		}
		return nil, projectResult{Project: p}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "optimize_project",
		Description: "Analyze the project and suggest optimizations; results are cached until the plan changes",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in optimizeParams) (*sdkmcp.CallToolResult, optimizeResult, error) {
		result, err := svc.Optimize(ctx, getTenantID(ctx), in.ProjectID, in.Force)
		if err != nil {
			return nil, optimizeResult{}, mapError(err)
		}
		return nil, optimizeResult{Result: result}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_save_history",
		Description: "List recent save events for a project, newest first",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in saveHistoryParams) (*sdkmcp.CallToolResult, saveHistoryResult, error) {
		events, err := svc.SaveHistory(ctx, getTenantID(ctx), in.ProjectID, in.Limit)
		if err != nil {
			return nil, saveHistoryResult{}, mapError(err)
		}
		return nil, saveHistoryResult{Events: events}, nil
	})
}

// currentMetadata reads the project's metadata so a partial update can keep
// the untouched fields. A missing project falls through to the update call,
// which reports the not-found error.
func currentMetadata(ctx context.Context, svc *Service, projectID string) plan.Metadata {
	view, err := svc.GetProject(ctx, getTenantID(ctx), projectID)
	if err != nil || view.Project == nil {
		return plan.Metadata{}
	}
	return view.Project.Metadata
}
