package plan

import "math"

// Progress returns the completion percentage derived from microtask state.
// Always recomputed; the stored Progress field is only a cached projection.
func Progress(p *Project) int {
	total, completed := 0, 0
	for _, ph := range p.Phases {
		for _, t := range ph.Microtasks {
			total++
			if t.Completed {
				completed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// TotalEstimatedHours sums the estimates of every microtask.
func TotalEstimatedHours(p *Project) float64 {
	var sum float64
	for _, ph := range p.Phases {
		for _, t := range ph.Microtasks {
			sum += t.EstimatedHours
		}
	}
	return sum
}

// IsBlocked reports whether the microtask has a "blocks" dependency on an
// incomplete task. Blocked status is derived, never stored.
func IsBlocked(p *Project, taskID string) bool {
	task, ok := findTask(p, taskID)
	if !ok {
		return false
	}
	for _, dep := range task.Dependencies {
		if dep.Type != DependencyBlocks {
			continue
		}
		other, ok := findTask(p, dep.TaskID)
		if ok && !other.Completed {
			return true
		}
	}
	return false
}

func findTask(p *Project, taskID string) (Microtask, bool) {
	for _, ph := range p.Phases {
		for _, t := range ph.Microtasks {
			if t.ID == taskID {
				return t, true
			}
		}
	}
	return Microtask{}, false
}
