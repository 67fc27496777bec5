package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpenna/planweave/internal/domain/plan"
)

// staleAfter bounds how long a cached optimization result stays fresh even
// when the project has not changed.
const staleAfter = 7 * 24 * time.Hour

// Service handles AI-backed breakdown generation and optimization analysis.
type Service struct {
	generator Generator
	optimizer Optimizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new generation service.
func NewService(generator Generator, optimizer Optimizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: generator,
		optimizer: optimizer,
		logger:    logger,
		now:       time.Now,
	}
}

// Breakdown generates a phase/microtask tree and applies it to the editor
// atomically: either the full generated set replaces the phases, or nothing
// is applied.
func (s *Service) Breakdown(ctx context.Context, ed Editor, req Request) (*plan.Project, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrInvalidInput
	}

	bd, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generating breakdown: %w", err)
	}
	if err := validateBreakdown(bd); err != nil {
		return nil, err
	}

	if err := ed.Apply(plan.ReplacePhases(toPlanPhases(bd))); err != nil {
		return nil, fmt.Errorf("applying breakdown: %w", err)
	}

	p := ed.Project()
	s.logger.Info("breakdown applied", "project", p.ID, "phases", len(p.Phases))
	return p, nil
}

// Optimize returns optimization suggestions for the editor's project. The
// cached result is reused while fresh: same state hash and younger than
// seven days. Force bypasses the cache.
func (s *Service) Optimize(ctx context.Context, ed Editor, force bool) (*plan.OptimizationResult, error) {
	p := ed.Project()
	hash := plan.StateHash(p)

	if !force && p.Optimization != nil &&
		p.Optimization.StateHash == hash &&
		s.now().Sub(p.Optimization.GeneratedAt) < staleAfter {
		return p.Optimization, nil
	}

	result, err := s.optimizer.Optimize(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("optimizing project: %w", err)
	}

	cached := *result
	cached.GeneratedAt = s.now().UTC()
	cached.StateHash = hash
	if err := ed.Apply(plan.SetOptimization(&cached)); err != nil {
		return nil, fmt.Errorf("caching optimization: %w", err)
	}
	return &cached, nil
}

func validateBreakdown(bd *Breakdown) error {
	if bd == nil || len(bd.Phases) == 0 {
		return ErrInvalidBreakdown
	}
	for _, ph := range bd.Phases {
		if strings.TrimSpace(ph.Name) == "" {
			return ErrInvalidBreakdown
		}
		for _, t := range ph.Tasks {
			if strings.TrimSpace(t.Name) == "" || t.EstimatedHours < 0 {
				return ErrInvalidBreakdown
			}
		}
	}
	return nil
}
