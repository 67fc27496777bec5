package plan

import (
	"encoding/json"
	"time"
)

// Normalize reshapes a possibly partial or legacy-shaped raw document into a
// fully populated Project. Every optional field is defaulted individually so
// the rest of the system never sees missing fields. Pure and idempotent.
func Normalize(raw map[string]any) *Project {
	if raw == nil {
		raw = map[string]any{}
	}

	p := &Project{
		ID:          str(raw["id"]),
		Title:       str(raw["title"]),
		Description: str(raw["description"]),
		Phases:      []Phase{},
		Team:        strSlice(raw["team"]),
		Metadata:    normalizeMetadata(raw["metadata"]),
		CreatedAt:   timestamp(raw["created_at"]),
		UpdatedAt:   timestamp(raw["updated_at"]),
	}

	for _, rawPhase := range mapSlice(raw["phases"]) {
		p.Phases = append(p.Phases, normalizePhase(rawPhase))
	}

	if rawOpt, ok := raw["optimization"].(map[string]any); ok {
		opt := normalizeOptimization(rawOpt)
		p.Optimization = &opt
	}

	// Never trust the stored projection.
	p.Progress = Progress(p)

	return p
}

// ToRaw converts a Project to its wire document form.
func ToRaw(p *Project) map[string]any {
	data, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{}
	}
	return raw
}

func normalizeMetadata(v any) Metadata {
	raw, _ := v.(map[string]any)
	md := Metadata{
		ProjectType: str(raw["project_type"]),
		TechStack:   strSlice(raw["tech_stack"]),
		TeamSize:    int(num(raw["team_size"])),
		Complexity:  Complexity(str(raw["complexity"])),
	}
	return md
}

func normalizePhase(raw map[string]any) Phase {
	ph := Phase{
		ID:            str(raw["id"]),
		Name:          str(raw["name"]),
		Description:   str(raw["description"]),
		Microtasks:    []Microtask{},
		EstimatedDays: num(raw["estimated_days"]),
		Milestone:     boolean(raw["milestone"]),
	}
	for _, rawTask := range mapSlice(raw["microtasks"]) {
		ph.Microtasks = append(ph.Microtasks, normalizeTask(rawTask))
	}
	if rawRisk, ok := raw["risk"].(map[string]any); ok {
		ph.Risk = &RiskAssessment{
			Level:       RiskLevel(str(rawRisk["level"])),
			Factors:     strSlice(rawRisk["factors"]),
			Mitigations: strSlice(rawRisk["mitigations"]),
		}
	}
	return ph
}

func normalizeTask(raw map[string]any) Microtask {
	t := Microtask{
		ID:             str(raw["id"]),
		Name:           str(raw["name"]),
		Description:    str(raw["description"]),
		EstimatedHours: num(raw["estimated_hours"]),
		Completed:      boolean(raw["completed"]),
		Priority:       Priority(str(raw["priority"])),
		Complexity:     Complexity(str(raw["complexity"])),
		Tags:           strSlice(raw["tags"]),
		Dependencies:   []Dependency{},
		Notes:          str(raw["notes"]),
	}
	if t.EstimatedHours < 0 {
		t.EstimatedHours = 0
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if v, ok := raw["actual_hours"]; ok && v != nil {
		hours := num(v)
		t.ActualHours = &hours
	}
	// completed_at exists iff completed is true.
	if t.Completed {
		ts := timestamp(raw["completed_at"])
		t.CompletedAt = &ts
	}
	for _, rawDep := range mapSlice(raw["dependencies"]) {
		dep := Dependency{
			TaskID: str(rawDep["task_id"]),
			Type:   DependencyType(str(rawDep["type"])),
		}
		if dep.Type == "" {
			dep.Type = DependencyBlocks
		}
		t.Dependencies = append(t.Dependencies, dep)
	}
	return t
}

func normalizeOptimization(raw map[string]any) OptimizationResult {
	return OptimizationResult{
		Optimizations:      strSlice(raw["optimizations"]),
		TimelinePrediction: str(raw["timeline_prediction"]),
		ScopeAdjustments:   strSlice(raw["scope_adjustments"]),
		RiskAlerts:         strSlice(raw["risk_alerts"]),
		GeneratedAt:        timestamp(raw["generated_at"]),
		StateHash:          str(raw["state_hash"]),
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func timestamp(v any) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func strSlice(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]string); ok {
			return append(out, typed...)
		}
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
