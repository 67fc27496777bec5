package plan_test

import (
	"testing"
	"time"

	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/stretchr/testify/require"
)

func fixtureProject() *plan.Project {
	return plan.Normalize(map[string]any{
		"id":    "p1",
		"title": "Initial",
		"phases": []any{
			map[string]any{
				"id":   "ph1",
				"name": "Build",
				"microtasks": []any{
					map[string]any{"id": "t1", "name": "Scaffold", "estimated_hours": 4.0},
					map[string]any{"id": "t2", "name": "Wire up", "estimated_hours": 2.0},
				},
			},
			map[string]any{"id": "ph2", "name": "Ship"},
		},
	})
}

func TestMutationsArePure(t *testing.T) {
	before := fixtureProject()
	after, err := plan.SetTitle("Renamed")(before)
	require.NoError(t, err)
	require.Equal(t, "Initial", before.Title)
	require.Equal(t, "Renamed", after.Title)

	after, err = plan.AddTask("ph1", plan.Microtask{Name: "Extra"})(before)
	require.NoError(t, err)
	require.Len(t, before.Phases[0].Microtasks, 2)
	require.Len(t, after.Phases[0].Microtasks, 3)
}

func TestAddPhase_AssignsID(t *testing.T) {
	p, err := plan.AddPhase(plan.Phase{Name: "QA"})(fixtureProject())
	require.NoError(t, err)
	require.Len(t, p.Phases, 3)
	require.NotEmpty(t, p.Phases[2].ID)
	require.Equal(t, []plan.Microtask{}, p.Phases[2].Microtasks)
}

func TestAddPhase_EmptyNameRejected(t *testing.T) {
	_, err := plan.AddPhase(plan.Phase{Name: "  "})(fixtureProject())
	require.ErrorIs(t, err, plan.ErrInvalidInput)
}

func TestDeletePhase_PreservesOrder(t *testing.T) {
	base := fixtureProject()
	withThird, err := plan.AddPhase(plan.Phase{ID: "ph3", Name: "QA"})(base)
	require.NoError(t, err)

	p, err := plan.DeletePhase("ph1")(withThird)
	require.NoError(t, err)
	require.Equal(t, "ph2", p.Phases[0].ID)
	require.Equal(t, "ph3", p.Phases[1].ID)
}

func TestDeletePhase_Unknown(t *testing.T) {
	_, err := plan.DeletePhase("nope")(fixtureProject())
	require.ErrorIs(t, err, plan.ErrPhaseNotFound)
}

func TestUpdateTask_PartialFields(t *testing.T) {
	name := "Scaffold v2"
	hours := 8.0
	prio := plan.PriorityCritical
	p, err := plan.UpdateTask("t1", plan.TaskUpdate{
		Name:           &name,
		EstimatedHours: &hours,
		Priority:       &prio,
	})(fixtureProject())
	require.NoError(t, err)
	task := p.Phases[0].Microtasks[0]
	require.Equal(t, "Scaffold v2", task.Name)
	require.Equal(t, 8.0, task.EstimatedHours)
	require.Equal(t, plan.PriorityCritical, task.Priority)
	// Untouched fields survive.
	require.Equal(t, "Wire up", p.Phases[0].Microtasks[1].Name)
}

func TestUpdateTask_Unknown(t *testing.T) {
	name := "x"
	_, err := plan.UpdateTask("missing", plan.TaskUpdate{Name: &name})(fixtureProject())
	require.ErrorIs(t, err, plan.ErrTaskNotFound)
}

func TestSetCompletion_Invariants(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	done, err := plan.SetCompletion("t1", true, now)(fixtureProject())
	require.NoError(t, err)
	task := done.Phases[0].Microtasks[0]
	require.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
	require.Equal(t, now, *task.CompletedAt)
	// Actual time defaults to the estimate when not set manually.
	require.NotNil(t, task.ActualHours)
	require.Equal(t, 4.0, *task.ActualHours)

	undone, err := plan.SetCompletion("t1", false, now)(done)
	require.NoError(t, err)
	task = undone.Phases[0].Microtasks[0]
	require.False(t, task.Completed)
	require.Nil(t, task.CompletedAt)
}

func TestSetCompletion_ManualActualKept(t *testing.T) {
	manual := 9.5
	base, err := plan.UpdateTask("t1", plan.TaskUpdate{ActualHours: &manual})(fixtureProject())
	require.NoError(t, err)

	done, err := plan.SetCompletion("t1", true, time.Now())(base)
	require.NoError(t, err)
	require.Equal(t, 9.5, *done.Phases[0].Microtasks[0].ActualHours)
}

func TestSetCompletion_RoundTripsThroughNormalize(t *testing.T) {
	done, err := plan.SetCompletion("t1", true, time.Now())(fixtureProject())
	require.NoError(t, err)

	rt := plan.Normalize(plan.ToRaw(done))
	require.True(t, rt.Phases[0].Microtasks[0].Completed)
	require.NotNil(t, rt.Phases[0].Microtasks[0].CompletedAt)

	undone, err := plan.SetCompletion("t1", false, time.Now())(rt)
	require.NoError(t, err)
	rt = plan.Normalize(plan.ToRaw(undone))
	require.False(t, rt.Phases[0].Microtasks[0].Completed)
	require.Nil(t, rt.Phases[0].Microtasks[0].CompletedAt)
}

func TestReplacePhases_AssignsIDsAndDefaults(t *testing.T) {
	p, err := plan.ReplacePhases([]plan.Phase{
		{Name: "Gen 1", Microtasks: []plan.Microtask{{Name: "a"}, {Name: "b"}}},
		{Name: "Gen 2"},
	})(fixtureProject())
	require.NoError(t, err)
	require.Len(t, p.Phases, 2)
	require.NotEmpty(t, p.Phases[0].ID)
	require.NotEmpty(t, p.Phases[0].Microtasks[0].ID)
	require.Equal(t, plan.PriorityMedium, p.Phases[0].Microtasks[1].Priority)
	require.Equal(t, []plan.Microtask{}, p.Phases[1].Microtasks)
}

func TestSetOptimization(t *testing.T) {
	result := &plan.OptimizationResult{
		Optimizations: []string{"parallelize design"},
		StateHash:     "h",
	}
	p, err := plan.SetOptimization(result)(fixtureProject())
	require.NoError(t, err)
	require.NotNil(t, p.Optimization)

	cleared, err := plan.SetOptimization(nil)(p)
	require.NoError(t, err)
	require.Nil(t, cleared.Optimization)
}
