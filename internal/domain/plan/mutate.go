package plan

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mutation is a pure transformation of the project tree. Implementations
// must not modify the input; they return a fresh value so identity-based
// change detection stays correct.
type Mutation func(p *Project) (*Project, error)

// PhaseUpdate carries optional phase field changes; nil fields are left as-is.
type PhaseUpdate struct {
	Name          *string
	Description   *string
	EstimatedDays *float64
	Milestone     *bool
	Risk          *RiskAssessment
}

// TaskUpdate carries optional microtask field changes; nil fields are left as-is.
type TaskUpdate struct {
	Name           *string
	Description    *string
	EstimatedHours *float64
	ActualHours    *float64
	Priority       *Priority
	Complexity     *Complexity
	Tags           []string
	Dependencies   []Dependency
	Notes          *string
}

// SetTitle replaces the project title.
func SetTitle(title string) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		out.Title = title
		return out, nil
	}
}

// SetDescription replaces the project description.
func SetDescription(description string) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		out.Description = description
		return out, nil
	}
}

// SetTeam replaces the team member list.
func SetTeam(team []string) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		out.Team = append([]string{}, team...)
		return out, nil
	}
}

// SetMetadata replaces the project metadata.
func SetMetadata(md Metadata) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		md.TechStack = append([]string{}, md.TechStack...)
		out.Metadata = md
		return out, nil
	}
}

// AddPhase appends a phase, assigning an id when none is provided.
func AddPhase(ph Phase) Mutation {
	return func(p *Project) (*Project, error) {
		if strings.TrimSpace(ph.Name) == "" {
			return nil, ErrInvalidInput
		}
		out := Clone(p)
		if ph.ID == "" {
			ph.ID = uuid.NewString()
		}
		if ph.Microtasks == nil {
			ph.Microtasks = []Microtask{}
		}
		out.Phases = append(out.Phases, clonePhase(ph))
		return out, nil
	}
}

// UpdatePhase applies a partial update to the phase with the given id.
func UpdatePhase(phaseID string, upd PhaseUpdate) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		ph := phaseByID(out, phaseID)
		if ph == nil {
			return nil, ErrPhaseNotFound
		}
		if upd.Name != nil {
			ph.Name = *upd.Name
		}
		if upd.Description != nil {
			ph.Description = *upd.Description
		}
		if upd.EstimatedDays != nil {
			ph.EstimatedDays = *upd.EstimatedDays
		}
		if upd.Milestone != nil {
			ph.Milestone = *upd.Milestone
		}
		if upd.Risk != nil {
			risk := *upd.Risk
			ph.Risk = &risk
		}
		return out, nil
	}
}

// DeletePhase removes the phase with the given id, preserving the order of
// the remaining phases.
func DeletePhase(phaseID string) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		for i, ph := range out.Phases {
			if ph.ID == phaseID {
				out.Phases = append(out.Phases[:i], out.Phases[i+1:]...)
				return out, nil
			}
		}
		return nil, ErrPhaseNotFound
	}
}

// AddTask appends a microtask to the given phase, assigning an id when none
// is provided.
func AddTask(phaseID string, t Microtask) Mutation {
	return func(p *Project) (*Project, error) {
		if strings.TrimSpace(t.Name) == "" {
			return nil, ErrInvalidInput
		}
		out := Clone(p)
		ph := phaseByID(out, phaseID)
		if ph == nil {
			return nil, ErrPhaseNotFound
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}
		if t.EstimatedHours < 0 {
			t.EstimatedHours = 0
		}
		ph.Microtasks = append(ph.Microtasks, cloneTask(t))
		return out, nil
	}
}

// UpdateTask applies a partial update to the microtask with the given id.
func UpdateTask(taskID string, upd TaskUpdate) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		t := taskByID(out, taskID)
		if t == nil {
			return nil, ErrTaskNotFound
		}
		if upd.Name != nil {
			t.Name = *upd.Name
		}
		if upd.Description != nil {
			t.Description = *upd.Description
		}
		if upd.EstimatedHours != nil && *upd.EstimatedHours >= 0 {
			t.EstimatedHours = *upd.EstimatedHours
		}
		if upd.ActualHours != nil {
			hours := *upd.ActualHours
			t.ActualHours = &hours
		}
		if upd.Priority != nil {
			t.Priority = *upd.Priority
		}
		if upd.Complexity != nil {
			t.Complexity = *upd.Complexity
		}
		if upd.Tags != nil {
			t.Tags = append([]string{}, upd.Tags...)
		}
		if upd.Dependencies != nil {
			t.Dependencies = append([]Dependency{}, upd.Dependencies...)
		}
		if upd.Notes != nil {
			t.Notes = *upd.Notes
		}
		return out, nil
	}
}

// DeleteTask removes the microtask with the given id.
func DeleteTask(taskID string) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		for pi := range out.Phases {
			tasks := out.Phases[pi].Microtasks
			for ti, t := range tasks {
				if t.ID == taskID {
					out.Phases[pi].Microtasks = append(tasks[:ti], tasks[ti+1:]...)
					return out, nil
				}
			}
		}
		return nil, ErrTaskNotFound
	}
}

// SetCompletion toggles a microtask's completion flag, maintaining the
// completed-at invariant: the timestamp exists iff the flag is true, and
// completing a task without a manual actual-time defaults it to the estimate.
func SetCompletion(taskID string, done bool, now time.Time) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		t := taskByID(out, taskID)
		if t == nil {
			return nil, ErrTaskNotFound
		}
		t.Completed = done
		if done {
			ts := now.UTC()
			t.CompletedAt = &ts
			if t.ActualHours == nil {
				hours := t.EstimatedHours
				t.ActualHours = &hours
			}
		} else {
			t.CompletedAt = nil
		}
		return out, nil
	}
}

// ReplacePhases swaps in a whole new phase tree. Used to apply a generated
// breakdown atomically: either the full set lands, or nothing does.
func ReplacePhases(phases []Phase) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		out.Phases = make([]Phase, 0, len(phases))
		for _, ph := range phases {
			if ph.ID == "" {
				ph.ID = uuid.NewString()
			}
			if ph.Microtasks == nil {
				ph.Microtasks = []Microtask{}
			}
			for i := range ph.Microtasks {
				if ph.Microtasks[i].ID == "" {
					ph.Microtasks[i].ID = uuid.NewString()
				}
				if ph.Microtasks[i].Priority == "" {
					ph.Microtasks[i].Priority = PriorityMedium
				}
			}
			out.Phases = append(out.Phases, clonePhase(ph))
		}
		return out, nil
	}
}

// SetOptimization attaches a cached optimization result.
func SetOptimization(result *OptimizationResult) Mutation {
	return func(p *Project) (*Project, error) {
		out := Clone(p)
		if result == nil {
			out.Optimization = nil
			return out, nil
		}
		opt := *result
		out.Optimization = &opt
		return out, nil
	}
}

func phaseByID(p *Project, id string) *Phase {
	for i := range p.Phases {
		if p.Phases[i].ID == id {
			return &p.Phases[i]
		}
	}
	return nil
}

func taskByID(p *Project, id string) *Microtask {
	for pi := range p.Phases {
		for ti := range p.Phases[pi].Microtasks {
			if p.Phases[pi].Microtasks[ti].ID == id {
				return &p.Phases[pi].Microtasks[ti]
			}
		}
	}
	return nil
}
