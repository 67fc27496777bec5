package generate

import "github.com/rpenna/planweave/internal/domain/plan"

// Request carries the structured input for a breakdown generation call.
type Request struct {
	Description   string          `json:"description"`
	ProjectType   string          `json:"project_type,omitempty"`
	TechStack     []string        `json:"tech_stack,omitempty"`
	TeamSize      int             `json:"team_size,omitempty"`
	Complexity    plan.Complexity `json:"complexity,omitempty"`
	TimelineWeeks int             `json:"timeline_weeks,omitempty"`
}

// Breakdown is the fixed-schema output of a generation call.
type Breakdown struct {
	Phases []GeneratedPhase `json:"phases"`
}

// GeneratedPhase is one phase of a generated breakdown.
type GeneratedPhase struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	EstimatedDays float64         `json:"estimated_days,omitempty"`
	Milestone     bool            `json:"milestone,omitempty"`
	Tasks         []GeneratedTask `json:"tasks"`
}

// GeneratedTask is one microtask of a generated breakdown.
type GeneratedTask struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	EstimatedHours float64         `json:"estimated_hours"`
	Priority       plan.Priority   `json:"priority,omitempty"`
	Complexity     plan.Complexity `json:"complexity,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
}

// toPlanPhases converts a validated breakdown into plan values. IDs are left
// empty; the ReplacePhases mutation assigns them.
func toPlanPhases(bd *Breakdown) []plan.Phase {
	phases := make([]plan.Phase, 0, len(bd.Phases))
	for _, gp := range bd.Phases {
		ph := plan.Phase{
			Name:          gp.Name,
			Description:   gp.Description,
			EstimatedDays: gp.EstimatedDays,
			Milestone:     gp.Milestone,
			Microtasks:    make([]plan.Microtask, 0, len(gp.Tasks)),
		}
		for _, gt := range gp.Tasks {
			ph.Microtasks = append(ph.Microtasks, plan.Microtask{
				Name:           gt.Name,
				Description:    gt.Description,
				EstimatedHours: gt.EstimatedHours,
				Priority:       gt.Priority,
				Complexity:     gt.Complexity,
				Tags:           gt.Tags,
			})
		}
		phases = append(phases, ph)
	}
	return phases
}
