package plan

// Clone returns a deep copy of the project tree. Mutations copy before they
// write so callers holding the previous value never observe changes.
func Clone(p *Project) *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Team = append([]string(nil), p.Team...)
	out.Metadata.TechStack = append([]string(nil), p.Metadata.TechStack...)
	out.Phases = make([]Phase, len(p.Phases))
	for i := range p.Phases {
		out.Phases[i] = clonePhase(p.Phases[i])
	}
	if p.Optimization != nil {
		opt := *p.Optimization
		opt.Optimizations = append([]string(nil), p.Optimization.Optimizations...)
		opt.ScopeAdjustments = append([]string(nil), p.Optimization.ScopeAdjustments...)
		opt.RiskAlerts = append([]string(nil), p.Optimization.RiskAlerts...)
		out.Optimization = &opt
	}
	return &out
}

func clonePhase(ph Phase) Phase {
	out := ph
	out.Microtasks = make([]Microtask, len(ph.Microtasks))
	for i := range ph.Microtasks {
		out.Microtasks[i] = cloneTask(ph.Microtasks[i])
	}
	if ph.Risk != nil {
		risk := *ph.Risk
		risk.Factors = append([]string(nil), ph.Risk.Factors...)
		risk.Mitigations = append([]string(nil), ph.Risk.Mitigations...)
		out.Risk = &risk
	}
	return out
}

func cloneTask(t Microtask) Microtask {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	out.Dependencies = append([]Dependency(nil), t.Dependencies...)
	if t.ActualHours != nil {
		hours := *t.ActualHours
		out.ActualHours = &hours
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		out.CompletedAt = &ts
	}
	return out
}
