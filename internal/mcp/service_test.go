package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpenna/planweave/internal/domain/generate"
	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/remote"
	"github.com/rpenna/planweave/internal/repository"
	"github.com/rpenna/planweave/internal/syncer"
)

type memDocs struct {
	mu   sync.Mutex
	rows map[string]repository.StoredDocument
}

func newMemDocs() *memDocs {
	return &memDocs{rows: make(map[string]repository.StoredDocument)}
}

func (m *memDocs) Put(_ context.Context, path string, body []byte) (repository.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.rows[path]
	row.Path = path
	row.Body = append([]byte(nil), body...)
	row.Revision++
	row.ModifiedAt = time.Now().UTC()
	m.rows[path] = row
	return row, nil
}

func (m *memDocs) Get(_ context.Context, path string) (repository.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[path]
	if !ok {
		return repository.StoredDocument{}, repository.ErrNotFound
	}
	return row, nil
}

func (m *memDocs) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[path]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, path)
	return nil
}

func (m *memDocs) List(_ context.Context, prefix string) ([]repository.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.StoredDocument
	for path, row := range m.rows {
		if strings.HasPrefix(path, prefix) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *memDocs) decode(t *testing.T, path string) map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[path]
	require.True(t, ok, "document %s not stored", path)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(row.Body, &doc))
	return doc
}

type memHistory struct {
	mu     sync.Mutex
	events []repository.SaveEvent
}

func (m *memHistory) Append(_ context.Context, event repository.SaveEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memHistory) List(_ context.Context, path string, limit int) ([]repository.SaveEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []repository.SaveEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].Path == path {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memDocs) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
	docs := newMemDocs()
	history := &memHistory{}
	store := remote.NewStore(docs, history, logger)
	manager := syncer.NewManager(store, syncer.Options{
		Debounce: 20 * time.Millisecond,
		Cooldown: 10 * time.Millisecond,
		Logger:   logger,
	})
	t.Cleanup(manager.CloseAll)
	gen := generate.NewService(generate.StaticGenerator{}, generate.StaticOptimizer{}, logger)
	return NewService(store, manager, history, gen, logger), docs
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestCreateAndGetProject(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Launch plan", "ship it", []string{"ana"}, &plan.Metadata{ProjectType: "web_app"})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "Launch plan", p.Title)
	require.NotZero(t, p.CreatedAt)

	stored := docs.decode(t, "tenants/t1/projects/"+p.ID)
	require.Equal(t, "Launch plan", stored["title"])

	view, err := svc.GetProject(ctx, "t1", p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, view.Project.ID)
	require.False(t, view.Dirty)
}

func TestCreateProjectRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateProject(context.Background(), "t1", "  ", "", nil, nil)
	require.ErrorIs(t, err, plan.ErrInvalidInput)
}

func TestGetProjectUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetProject(context.Background(), "t1", "nope")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestListProjectsIsTenantScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "t1", "Mine", "", nil, nil)
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, "t2", "Theirs", "", nil, nil)
	require.NoError(t, err)

	summaries, err := svc.ListProjects(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Mine", summaries[0].Title)
}

func TestEditThenFlushPersists(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)

	_, err = svc.AddPhase(ctx, "t1", p.ID, plan.Phase{Name: "Build"})
	require.NoError(t, err)

	_, err = svc.Flush(ctx, "t1", p.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		doc := docs.decode(t, "tenants/t1/projects/"+p.ID)
		phases, _ := doc["phases"].([]any)
		return len(phases) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestToggleMicrotaskSavesImmediately(t *testing.T) {
	svc, docs := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)
	p, err = svc.AddPhase(ctx, "t1", p.ID, plan.Phase{Name: "Build"})
	require.NoError(t, err)
	p, err = svc.AddMicrotask(ctx, "t1", p.ID, p.Phases[0].ID, plan.Microtask{Name: "Wire it", EstimatedHours: 3})
	require.NoError(t, err)
	taskID := p.Phases[0].Microtasks[0].ID

	p, err = svc.ToggleMicrotask(ctx, "t1", p.ID, taskID, true)
	require.NoError(t, err)
	require.True(t, p.Phases[0].Microtasks[0].Completed)
	require.Equal(t, 100, p.Progress)

	// The toggle bypasses the debounce, so the store catches up without
	// waiting out the debounce interval.
	require.Eventually(t, func() bool {
		doc := docs.decode(t, "tenants/t1/projects/"+p.ID)
		phases, _ := doc["phases"].([]any)
		if len(phases) != 1 {
			return false
		}
		tasks, _ := phases[0].(map[string]any)["microtasks"].([]any)
		if len(tasks) != 1 {
			return false
		}
		done, _ := tasks[0].(map[string]any)["completed"].(bool)
		return done
	}, time.Second, 5*time.Millisecond)
}

func TestToggleUnknownMicrotask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)

	_, err = svc.ToggleMicrotask(ctx, "t1", p.ID, "ghost", true)
	require.ErrorIs(t, err, plan.ErrTaskNotFound)
}

func TestDeleteProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, "t1", p.ID))
	require.ErrorIs(t, svc.DeleteProject(ctx, "t1", p.ID), ErrProjectNotFound)

	_, err = svc.GetProject(ctx, "t1", p.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestGenerateBreakdownReplacesPhases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)
	_, err = svc.AddPhase(ctx, "t1", p.ID, plan.Phase{Name: "Handmade"})
	require.NoError(t, err)

	p, err = svc.GenerateBreakdown(ctx, "t1", p.ID, generate.Request{Description: "build a store"})
	require.NoError(t, err)
	require.NotEmpty(t, p.Phases)
	for _, ph := range p.Phases {
		require.NotEqual(t, "Handmade", ph.Name)
	}
}

func TestOptimizeProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)

	result, err := svc.Optimize(ctx, "t1", p.ID, false)
	require.NoError(t, err)
	require.NotEmpty(t, result.StateHash)

	view, err := svc.GetProject(ctx, "t1", p.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Project.Optimization)
}

func TestSaveHistoryRecordsWrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "t1", "Plan", "", nil, nil)
	require.NoError(t, err)
	_, err = svc.AddPhase(ctx, "t1", p.ID, plan.Phase{Name: "Build"})
	require.NoError(t, err)
	_, err = svc.Flush(ctx, "t1", p.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := svc.SaveHistory(ctx, "t1", p.ID, 10)
		return err == nil && len(events) >= 2
	}, time.Second, 5*time.Millisecond)

	events, err := svc.SaveHistory(ctx, "t1", p.ID, 10)
	require.NoError(t, err)
	// Newest first; the create is the oldest event.
	require.Equal(t, "create", events[len(events)-1].Origin)
	require.Greater(t, events[0].Revision, events[len(events)-1].Revision)
}

func TestMapError(t *testing.T) {
	require.Equal(t, "PROJECT_NOT_FOUND", MapError(ErrProjectNotFound).Code)
	require.Equal(t, "PROJECT_NOT_FOUND", MapError(repository.ErrNotFound).Code)
	require.Equal(t, "PHASE_NOT_FOUND", MapError(plan.ErrPhaseNotFound).Code)
	require.Equal(t, "MICROTASK_NOT_FOUND", MapError(plan.ErrTaskNotFound).Code)
	require.Equal(t, "INVALID_INPUT", MapError(plan.ErrInvalidInput).Code)
	require.Equal(t, "INVALID_BREAKDOWN", MapError(generate.ErrInvalidBreakdown).Code)
	require.Equal(t, "PROJECT_CLOSED", MapError(syncer.ErrClosed).Code)
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(context.Canceled))
}
