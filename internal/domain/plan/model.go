package plan

import "time"

// Priority orders microtasks by urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Complexity is a coarse sizing tier shared by projects and microtasks.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// DependencyType describes how one microtask relates to another.
type DependencyType string

const (
	DependencyBlocks       DependencyType = "blocks"
	DependencyPrerequisite DependencyType = "prerequisite"
	DependencyParallel     DependencyType = "parallel"
)

// RiskLevel grades a phase risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Project is the root planning document. It is treated as an immutable
// value: every mutation produces a new tree (see mutate.go).
type Project struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Phases       []Phase             `json:"phases"`
	Team         []string            `json:"team"`
	Metadata     Metadata            `json:"metadata"`
	Optimization *OptimizationResult `json:"optimization,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`

	// Progress is a cached projection of microtask completion, recomputed
	// on normalization and never the source of truth.
	Progress int `json:"progress"`
}

// Metadata carries free-form planning context for a project.
type Metadata struct {
	ProjectType string     `json:"project_type,omitempty"`
	TechStack   []string   `json:"tech_stack"`
	TeamSize    int        `json:"team_size,omitempty"`
	Complexity  Complexity `json:"complexity,omitempty"`
}

// Phase is an ordered grouping of microtasks. Position in
// Project.Phases is significant and preserved across edits.
type Phase struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Microtasks    []Microtask     `json:"microtasks"`
	EstimatedDays float64         `json:"estimated_days,omitempty"`
	Milestone     bool            `json:"milestone,omitempty"`
	Risk          *RiskAssessment `json:"risk,omitempty"`
}

// RiskAssessment is an optional per-phase risk annotation.
type RiskAssessment struct {
	Level       RiskLevel `json:"level"`
	Factors     []string  `json:"factors"`
	Mitigations []string  `json:"mitigations"`
}

// Microtask is the atomic unit of work.
type Microtask struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	EstimatedHours float64      `json:"estimated_hours"`
	ActualHours    *float64     `json:"actual_hours,omitempty"`
	Completed      bool         `json:"completed"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Priority       Priority     `json:"priority"`
	Complexity     Complexity   `json:"complexity,omitempty"`
	Tags           []string     `json:"tags"`
	Dependencies   []Dependency `json:"dependencies"`
	Notes          string       `json:"notes,omitempty"`
}

// Dependency references another microtask by id.
type Dependency struct {
	TaskID string         `json:"task_id"`
	Type   DependencyType `json:"type"`
}

// OptimizationResult caches an AI analysis of the project.
type OptimizationResult struct {
	Optimizations      []string  `json:"optimizations"`
	TimelinePrediction string    `json:"timeline_prediction,omitempty"`
	ScopeAdjustments   []string  `json:"scope_adjustments"`
	RiskAlerts         []string  `json:"risk_alerts"`
	GeneratedAt        time.Time `json:"generated_at"`
	StateHash          string    `json:"state_hash"`
}

// ProjectSummary is a lightweight representation for listing.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Progress   int       `json:"progress"`
	PhaseCount int       `json:"phase_count"`
	TaskCount  int       `json:"task_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary projects a Project down to its listing view.
func (p *Project) Summary() ProjectSummary {
	tasks := 0
	for _, ph := range p.Phases {
		tasks += len(ph.Microtasks)
	}
	return ProjectSummary{
		ID:         p.ID,
		Title:      p.Title,
		Progress:   Progress(p),
		PhaseCount: len(p.Phases),
		TaskCount:  tasks,
		UpdatedAt:  p.UpdatedAt,
	}
}
