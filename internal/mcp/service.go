package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rpenna/planweave/internal/domain/generate"
	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/remote"
	"github.com/rpenna/planweave/internal/repository"
	"github.com/rpenna/planweave/internal/syncer"
)

// Service bridges MCP tools to the document store and the per-project write
// coordinators. Every operation is tenant-scoped through the document path.
type Service struct {
	store   *remote.Store
	manager *syncer.Manager
	history repository.HistoryRepository
	gen     *generate.Service
	logger  *slog.Logger
}

// NewService creates the tool-facing service.
func NewService(store *remote.Store, manager *syncer.Manager, history repository.HistoryRepository, gen *generate.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		manager: manager,
		history: history,
		gen:     gen,
		logger:  logger,
	}
}

func docPath(tenantID, projectID string) string {
	return fmt.Sprintf("tenants/%s/projects/%s", tenantID, projectID)
}

func docPrefix(tenantID string) string {
	return fmt.Sprintf("tenants/%s/projects/", tenantID)
}

// ProjectView is a project snapshot plus its editor status.
type ProjectView struct {
	Project   *plan.Project `json:"project"`
	SyncState string        `json:"sync_state"`
	Dirty     bool          `json:"dirty"`
}

// ProjectUpdate carries optional top-level project changes.
type ProjectUpdate struct {
	Title       *string
	Description *string
	Team        []string
	Metadata    *plan.Metadata
}

// CreateProject writes a fresh normalized project document and opens an
// editor for it.
func (s *Service) CreateProject(ctx context.Context, tenantID, title, description string, team []string, md *plan.Metadata) (*plan.Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, plan.ErrInvalidInput
	}

	p := &plan.Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Team:        team,
		Phases:      []plan.Phase{},
	}
	if md != nil {
		p.Metadata = *md
	}
	p = plan.Normalize(plan.ToRaw(p))

	path := docPath(tenantID, p.ID)
	doc := plan.ToRaw(p)
	doc["created_at"] = remote.ServerTimestamp
	doc["updated_at"] = remote.ServerTimestamp
	if err := s.store.WriteFullAs(ctx, path, doc, "create"); err != nil {
		return nil, err
	}

	stored, err := s.store.ReadOnce(ctx, path)
	if err != nil {
		return nil, err
	}
	created := plan.Normalize(stored)
	s.manager.Open(path, created)
	s.logger.Info("project created", "tenant", tenantID, "project", created.ID)
	return created, nil
}

// open returns the coordinator for a project, loading and subscribing it on
// first access.
func (s *Service) open(ctx context.Context, tenantID, projectID string) (*syncer.Coordinator, error) {
	path := docPath(tenantID, projectID)
	if coord, ok := s.manager.Get(path); ok {
		return coord, nil
	}
	doc, err := s.store.ReadOnce(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrProjectNotFound
	}
	return s.manager.Open(path, plan.Normalize(doc)), nil
}

// GetProject returns the buffered project and its editor status, opening the
// project if needed.
func (s *Service) GetProject(ctx context.Context, tenantID, projectID string) (*ProjectView, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectView{
		Project:   coord.Project(),
		SyncState: coord.State().String(),
		Dirty:     coord.Dirty(),
	}, nil
}

// ListProjects returns summaries of every project document for the tenant.
func (s *Service) ListProjects(ctx context.Context, tenantID string) ([]plan.ProjectSummary, error) {
	docs, err := s.store.ListPrefix(ctx, docPrefix(tenantID))
	if err != nil {
		return nil, err
	}
	summaries := make([]plan.ProjectSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, plan.Normalize(doc).Summary())
	}
	return summaries, nil
}

// DeleteProject closes any open editor and removes the document.
func (s *Service) DeleteProject(ctx context.Context, tenantID, projectID string) error {
	path := docPath(tenantID, projectID)
	doc, err := s.store.ReadOnce(ctx, path)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrProjectNotFound
	}
	s.manager.Close(path)
	if err := s.store.Delete(ctx, path); err != nil {
		return err
	}
	s.logger.Info("project deleted", "tenant", tenantID, "project", projectID)
	return nil
}

// UpdateProject applies top-level field changes through the debounce path.
func (s *Service) UpdateProject(ctx context.Context, tenantID, projectID string, upd ProjectUpdate) (*plan.Project, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, plan.ErrInvalidInput
		}
		if err := coord.Apply(plan.SetTitle(*upd.Title)); err != nil {
			return nil, err
		}
	}
	if upd.Description != nil {
		if err := coord.Apply(plan.SetDescription(*upd.Description)); err != nil {
			return nil, err
		}
	}
	if upd.Team != nil {
		if err := coord.Apply(plan.SetTeam(upd.Team)); err != nil {
			return nil, err
		}
	}
	if upd.Metadata != nil {
		if err := coord.Apply(plan.SetMetadata(*upd.Metadata)); err != nil {
			return nil, err
		}
	}
	return coord.Project(), nil
}

// AddPhase appends a phase to the project.
func (s *Service) AddPhase(ctx context.Context, tenantID, projectID string, ph plan.Phase) (*plan.Project, error) {
	return s.mutate(ctx, tenantID, projectID, plan.AddPhase(ph))
}

// UpdatePhase applies a partial phase update.
func (s *Service) UpdatePhase(ctx context.Context, tenantID, projectID, phaseID string, upd plan.PhaseUpdate) (*plan.Project, error) {
	return s.mutate(ctx, tenantID, projectID, plan.UpdatePhase(phaseID, upd))
}

// DeletePhase removes a phase and its microtasks.
func (s *Service) DeletePhase(ctx context.Context, tenantID, projectID, phaseID string) (*plan.Project, error) {
	return s.mutate(ctx, tenantID, projectID, plan.DeletePhase(phaseID))
}

// AddMicrotask appends a microtask to a phase.
func (s *Service) AddMicrotask(ctx context.Context, tenantID, projectID, phaseID string, t plan.Microtask) (*plan.Project, error) {
	return s.mutate(ctx, tenantID, projectID, plan.AddTask(phaseID, t))
}

// UpdateMicrotask applies a partial microtask update.
func (s *Service) UpdateMicrotask(ctx context.Context, tenantID, projectID, taskID string, upd plan.TaskUpdate) (*plan.Project, error) {
	return s.mutate(ctx, tenantID, projectID, plan.UpdateTask(taskID, upd))
}

// DeleteMicrotask removes a microtask.
func (s *Service) DeleteMicrotask(ctx context.Context, tenantID, projectID, taskID string) (*plan.Project, error) {
	return s.mutate(ctx, tenantID, projectID, plan.DeleteTask(taskID))
}

// ToggleMicrotask flips a microtask's completion through the optimistic
// write path: the change is persisted immediately instead of debounced.
func (s *Service) ToggleMicrotask(ctx context.Context, tenantID, projectID, taskID string, done bool) (*plan.Project, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if err := coord.ToggleCompletion(taskID, done); err != nil {
		return nil, err
	}
	return coord.Project(), nil
}

// Flush forces an immediate write of unsaved edits, the manual retry after a
// failed save.
func (s *Service) Flush(ctx context.Context, tenantID, projectID string) (*ProjectView, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if err := coord.Flush(); err != nil {
		return nil, err
	}
	return &ProjectView{
		Project:   coord.Project(),
		SyncState: coord.State().String(),
		Dirty:     coord.Dirty(),
	}, nil
}

// GenerateBreakdown replaces the project's phases with a generated tree.
func (s *Service) GenerateBreakdown(ctx context.Context, tenantID, projectID string, req generate.Request) (*plan.Project, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	return s.gen.Breakdown(ctx, coord, req)
}

// Optimize returns optimization suggestions, reusing the cached result while
// the project is structurally unchanged and the cache is fresh.
func (s *Service) Optimize(ctx context.Context, tenantID, projectID string, force bool) (*plan.OptimizationResult, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	return s.gen.Optimize(ctx, coord, force)
}

// SaveHistory lists recent save events for a project, newest first.
func (s *Service) SaveHistory(ctx context.Context, tenantID, projectID string, limit int) ([]repository.SaveEvent, error) {
	return s.history.List(ctx, docPath(tenantID, projectID), limit)
}

func (s *Service) mutate(ctx context.Context, tenantID, projectID string, m plan.Mutation) (*plan.Project, error) {
	coord, err := s.open(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	if err := coord.Apply(m); err != nil {
		return nil, err
	}
	return coord.Project(), nil
}
