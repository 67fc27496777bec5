package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpenna/planweave/internal/domain/plan"
)

// StaticGenerator produces deterministic, template-derived breakdowns. It
// stands in for the external model behind the Generator interface so the
// server works offline; the fixed schema is the contract either way.
type StaticGenerator struct{}

// Generate builds a standard five-phase breakdown scaled by complexity.
func (StaticGenerator) Generate(_ context.Context, req Request) (*Breakdown, error) {
	scale := complexityScale(req.Complexity)
	subject := strings.TrimSpace(req.Description)

	bd := &Breakdown{
		Phases: []GeneratedPhase{
			{
				Name:          "Discovery",
				Description:   fmt.Sprintf("Clarify requirements for: %s", subject),
				EstimatedDays: 2 * scale,
				Tasks: []GeneratedTask{
					{Name: "Collect requirements", EstimatedHours: 4 * scale, Priority: plan.PriorityHigh, Tags: []string{"research"}},
					{Name: "Identify stakeholders", EstimatedHours: 2 * scale, Priority: plan.PriorityMedium, Tags: []string{"research"}},
					{Name: "Define success criteria", EstimatedHours: 2 * scale, Priority: plan.PriorityHigh},
				},
			},
			{
				Name:          "Design",
				EstimatedDays: 3 * scale,
				Tasks: []GeneratedTask{
					{Name: "Draft architecture", EstimatedHours: 6 * scale, Priority: plan.PriorityHigh, Tags: []string{"design"}},
					{Name: "Review design", EstimatedHours: 2 * scale, Priority: plan.PriorityMedium, Tags: []string{"design"}},
				},
			},
			{
				Name:          "Implementation",
				EstimatedDays: 8 * scale,
				Tasks:         implementationTasks(req, scale),
			},
			{
				Name:          "Testing",
				EstimatedDays: 3 * scale,
				Tasks: []GeneratedTask{
					{Name: "Write test plan", EstimatedHours: 3 * scale, Priority: plan.PriorityMedium, Tags: []string{"qa"}},
					{Name: "Execute test plan", EstimatedHours: 6 * scale, Priority: plan.PriorityHigh, Tags: []string{"qa"}},
					{Name: "Fix defects", EstimatedHours: 6 * scale, Priority: plan.PriorityHigh, Tags: []string{"qa"}},
				},
			},
			{
				Name:          "Launch",
				EstimatedDays: 1 * scale,
				Milestone:     true,
				Tasks: []GeneratedTask{
					{Name: "Prepare release", EstimatedHours: 3 * scale, Priority: plan.PriorityCritical},
					{Name: "Ship and verify", EstimatedHours: 2 * scale, Priority: plan.PriorityCritical},
				},
			},
		},
	}
	return bd, nil
}

func implementationTasks(req Request, scale float64) []GeneratedTask {
	tasks := []GeneratedTask{
		{Name: "Build core features", EstimatedHours: 16 * scale, Priority: plan.PriorityCritical, Complexity: req.Complexity},
	}
	for _, tech := range req.TechStack {
		tasks = append(tasks, GeneratedTask{
			Name:           fmt.Sprintf("Integrate %s", tech),
			EstimatedHours: 4 * scale,
			Priority:       plan.PriorityMedium,
			Tags:           []string{"integration"},
		})
	}
	tasks = append(tasks, GeneratedTask{
		Name:           "Code review and cleanup",
		EstimatedHours: 4 * scale,
		Priority:       plan.PriorityMedium,
	})
	return tasks
}

func complexityScale(c plan.Complexity) float64 {
	switch c {
	case plan.ComplexitySimple:
		return 0.5
	case plan.ComplexityComplex:
		return 2
	default:
		return 1
	}
}

// StaticOptimizer derives rule-based suggestions from the project tree.
type StaticOptimizer struct{}

// Optimize flags oversized phases, missing estimates and blocking chains.
func (StaticOptimizer) Optimize(_ context.Context, p *plan.Project) (*plan.OptimizationResult, error) {
	result := &plan.OptimizationResult{
		Optimizations:    []string{},
		ScopeAdjustments: []string{},
		RiskAlerts:       []string{},
	}

	totalHours := plan.TotalEstimatedHours(p)
	result.TimelinePrediction = fmt.Sprintf("%.0f estimated hours across %d phases", totalHours, len(p.Phases))

	for _, ph := range p.Phases {
		if len(ph.Microtasks) > 8 {
			result.ScopeAdjustments = append(result.ScopeAdjustments,
				fmt.Sprintf("Phase %q has %d microtasks; consider splitting it", ph.Name, len(ph.Microtasks)))
		}
		for _, task := range ph.Microtasks {
			if task.EstimatedHours == 0 && !task.Completed {
				result.Optimizations = append(result.Optimizations,
					fmt.Sprintf("Microtask %q has no estimate", task.Name))
			}
			if plan.IsBlocked(p, task.ID) && task.Priority == plan.PriorityCritical {
				result.RiskAlerts = append(result.RiskAlerts,
					fmt.Sprintf("Critical microtask %q is blocked", task.Name))
			}
		}
	}

	if len(p.Team) > 0 && p.Metadata.TeamSize > len(p.Team) {
		result.RiskAlerts = append(result.RiskAlerts,
			fmt.Sprintf("Planned team size is %d but only %d members are assigned", p.Metadata.TeamSize, len(p.Team)))
	}

	return result, nil
}
