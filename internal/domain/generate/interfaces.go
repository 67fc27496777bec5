package generate

import (
	"context"

	"github.com/rpenna/planweave/internal/domain/plan"
)

// Generator produces a task breakdown from a structured request. It either
// returns a breakdown matching the fixed schema or an error; retries, if
// any, are the caller's concern.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Breakdown, error)
}

// Optimizer analyzes a project and proposes adjustments.
type Optimizer interface {
	Optimize(ctx context.Context, p *plan.Project) (*plan.OptimizationResult, error)
}

// Editor is the slice of the write coordinator the generation service
// needs: a project snapshot and atomic mutation application.
type Editor interface {
	Project() *plan.Project
	Apply(m plan.Mutation) error
}
