package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/remote"
	"github.com/rpenna/planweave/internal/syncer"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the debounce and cooldown windows with virtual time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) syncer.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves virtual time forward, firing due timers in order. Callbacks
// run without the clock lock held so they may schedule new timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.at.After(c.now) {
			c.now = next.at
		}
		next.fired = true
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// fakeChannel records full-document writes and lets tests gate them to hold
// the coordinator in the Writing state.
type fakeChannel struct {
	mu       sync.Mutex
	writes   []remote.Document
	writeErr error
	gate     chan struct{}
	stream   chan remote.Document
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{stream: make(chan remote.Document, 16)}
}

func (f *fakeChannel) Subscribe(ctx context.Context, path string) (<-chan remote.Document, error) {
	return f.stream, nil
}

func (f *fakeChannel) WriteFull(ctx context.Context, path string, doc remote.Document) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, doc)
	return f.writeErr
}

func (f *fakeChannel) ReadOnce(ctx context.Context, path string) (remote.Document, error) {
	return nil, nil
}

func (f *fakeChannel) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeChannel) lastWrite() remote.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

type recordingNotifier struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNotifier) SaveFailed(path string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paths)
}

func newTestCoordinator(t *testing.T) (*syncer.Coordinator, *fakeChannel, *fakeClock, *recordingNotifier) {
	t.Helper()
	channel := newFakeChannel()
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	initial := plan.Normalize(map[string]any{
		"id":    "p1",
		"title": "Initial",
		"phases": []any{
			map[string]any{
				"id":   "ph1",
				"name": "Build",
				"microtasks": []any{
					map[string]any{"id": "t1", "name": "Scaffold", "estimated_hours": 4.0},
				},
			},
		},
	})
	coord := syncer.NewCoordinator(channel, "tenants/u1/projects/p1", initial, syncer.Options{
		Debounce: 400 * time.Millisecond,
		Cooldown: 600 * time.Millisecond,
		Clock:    clock,
		Notifier: notifier,
	})
	return coord, channel, clock, notifier
}

func waitForWrites(t *testing.T, channel *fakeChannel, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return channel.writeCount() == n },
		2*time.Second, time.Millisecond)
}

func waitForState(t *testing.T, coord *syncer.Coordinator, s syncer.State) {
	t.Helper()
	require.Eventually(t, func() bool { return coord.State() == s },
		2*time.Second, time.Millisecond)
}

func TestCoordinator_DebounceCoalescing(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	require.NoError(t, coord.Apply(plan.SetTitle("A")))
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, coord.Apply(plan.SetTitle("AB")))
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, coord.Apply(plan.SetTitle("ABC")))

	// Trailing-edge debounce: nothing written until a quiet window passes.
	clock.Advance(399 * time.Millisecond)
	require.Equal(t, 0, channel.writeCount())

	clock.Advance(1 * time.Millisecond)
	waitForWrites(t, channel, 1)
	require.Equal(t, "ABC", channel.lastWrite()["title"])

	// One write for the whole burst, even after the cooldown drains.
	waitForState(t, coord, syncer.StateCooldown)
	clock.Advance(600 * time.Millisecond)
	waitForState(t, coord, syncer.StateIdle)
	require.Equal(t, 1, channel.writeCount())
}

func TestCoordinator_OptimisticCompletionBypassesDebounce(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	require.NoError(t, coord.ToggleCompletion("t1", true))

	// Write observed without any clock advance.
	waitForWrites(t, channel, 1)
	_ = clock

	doc := channel.lastWrite()
	phases := doc["phases"].([]any)
	tasks := phases[0].(map[string]any)["microtasks"].([]any)
	task := tasks[0].(map[string]any)
	require.Equal(t, true, task["completed"])
	require.NotEmpty(t, task["completed_at"])
	require.Equal(t, 4.0, task["actual_hours"])
}

func TestCoordinator_ToggleFlushesPendingEdits(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	require.NoError(t, coord.Apply(plan.SetTitle("Renamed")))
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, coord.ToggleCompletion("t1", true))

	waitForWrites(t, channel, 1)
	doc := channel.lastWrite()
	require.Equal(t, "Renamed", doc["title"])

	// The cancelled debounce timer must not produce a second write.
	waitForState(t, coord, syncer.StateCooldown)
	clock.Advance(2 * time.Second)
	waitForState(t, coord, syncer.StateIdle)
	require.Equal(t, 1, channel.writeCount())
}

func TestCoordinator_SuppressesEchoDuringWriteAndCooldown(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	gate := make(chan struct{})
	channel.gate = gate

	require.NoError(t, coord.Apply(plan.SetTitle("Edited")))
	clock.Advance(400 * time.Millisecond)
	waitForState(t, coord, syncer.StateWriting)

	// Echo of the pre-edit document arrives mid-flight.
	coord.HandleRemote(remote.Document{"id": "p1", "title": "Initial"})
	require.Equal(t, "Edited", coord.Project().Title)

	close(gate)
	waitForState(t, coord, syncer.StateCooldown)

	// Still suppressed during the cooldown window.
	coord.HandleRemote(remote.Document{"id": "p1", "title": "Initial"})
	require.Equal(t, "Edited", coord.Project().Title)

	clock.Advance(600 * time.Millisecond)
	waitForState(t, coord, syncer.StateIdle)

	// Suppression over: remote changes apply again.
	coord.HandleRemote(remote.Document{"id": "p1", "title": "From elsewhere"})
	require.Equal(t, "From elsewhere", coord.Project().Title)
}

func TestCoordinator_RemoteAppliedWhileIdleAndPending(t *testing.T) {
	coord, _, clock, _ := newTestCoordinator(t)

	coord.HandleRemote(remote.Document{"id": "p1", "title": "Remote v2"})
	require.Equal(t, "Remote v2", coord.Project().Title)
	require.False(t, coord.Dirty())

	// During PendingDebounce the notification still applies; the pending
	// flush then writes the replaced state back.
	require.NoError(t, coord.Apply(plan.SetTitle("Local")))
	coord.HandleRemote(remote.Document{"id": "p1", "title": "Remote v3"})
	require.Equal(t, "Remote v3", coord.Project().Title)
	require.True(t, coord.Dirty())
	_ = clock
}

func TestCoordinator_WriteFailurePreservesBuffer(t *testing.T) {
	coord, channel, clock, notifier := newTestCoordinator(t)
	channel.writeErr = errors.New("network down")

	require.NoError(t, coord.Apply(plan.SetTitle("Unsaved")))
	clock.Advance(400 * time.Millisecond)
	waitForWrites(t, channel, 1)
	waitForState(t, coord, syncer.StateCooldown)

	require.Equal(t, "Unsaved", coord.Project().Title)
	require.True(t, coord.Dirty())
	require.Equal(t, 1, notifier.count())

	// No automatic retry after the cooldown drains.
	clock.Advance(600 * time.Millisecond)
	waitForState(t, coord, syncer.StateIdle)
	require.Equal(t, 1, channel.writeCount())

	// The next edit carries the preserved content.
	channel.mu.Lock()
	channel.writeErr = nil
	channel.mu.Unlock()
	require.NoError(t, coord.Apply(plan.SetDescription("retry")))
	clock.Advance(400 * time.Millisecond)
	waitForWrites(t, channel, 2)
	require.Equal(t, "Unsaved", channel.lastWrite()["title"])
}

func TestCoordinator_EditDuringWritePickedUpNextCycle(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	gate := make(chan struct{})
	channel.gate = gate

	require.NoError(t, coord.Apply(plan.SetTitle("First")))
	clock.Advance(400 * time.Millisecond)
	waitForState(t, coord, syncer.StateWriting)

	require.NoError(t, coord.Apply(plan.SetTitle("Second")))

	channel.mu.Lock()
	channel.gate = nil
	channel.mu.Unlock()
	close(gate)
	waitForWrites(t, channel, 1)
	waitForState(t, coord, syncer.StateCooldown)

	// Cooldown elapses into a fresh debounce cycle for the queued edit.
	clock.Advance(600 * time.Millisecond)
	waitForState(t, coord, syncer.StatePendingDebounce)
	clock.Advance(400 * time.Millisecond)
	waitForWrites(t, channel, 2)
	require.Equal(t, "Second", channel.lastWrite()["title"])
}

func TestCoordinator_ToggleDuringWriteFlushesAfterCooldown(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	gate := make(chan struct{})
	channel.gate = gate

	require.NoError(t, coord.Apply(plan.SetTitle("First")))
	clock.Advance(400 * time.Millisecond)
	waitForState(t, coord, syncer.StateWriting)

	require.NoError(t, coord.ToggleCompletion("t1", true))

	channel.mu.Lock()
	channel.gate = nil
	channel.mu.Unlock()
	close(gate)
	waitForWrites(t, channel, 1)
	waitForState(t, coord, syncer.StateCooldown)

	// The queued toggle writes as soon as the cooldown elapses; no debounce
	// window in between.
	clock.Advance(600 * time.Millisecond)
	waitForWrites(t, channel, 2)

	doc := channel.lastWrite()
	phases := doc["phases"].([]any)
	tasks := phases[0].(map[string]any)["microtasks"].([]any)
	require.Equal(t, true, tasks[0].(map[string]any)["completed"])
}

func TestCoordinator_FlushDuringCooldownRetriesWithoutDebounce(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)
	channel.writeErr = errors.New("network down")

	require.NoError(t, coord.Apply(plan.SetTitle("Keep me")))
	clock.Advance(400 * time.Millisecond)
	waitForWrites(t, channel, 1)
	waitForState(t, coord, syncer.StateCooldown)

	channel.mu.Lock()
	channel.writeErr = nil
	channel.mu.Unlock()

	// Manual retry issued while the failed write's cooldown is still
	// running: it starts the moment the cooldown elapses.
	require.NoError(t, coord.Flush())
	clock.Advance(600 * time.Millisecond)
	waitForWrites(t, channel, 2)
	require.Equal(t, "Keep me", channel.lastWrite()["title"])
}

func TestCoordinator_ManualFlush(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)
	channel.writeErr = errors.New("network down")

	require.NoError(t, coord.Apply(plan.SetTitle("Keep me")))
	clock.Advance(400 * time.Millisecond)
	waitForWrites(t, channel, 1)
	waitForState(t, coord, syncer.StateCooldown)
	clock.Advance(600 * time.Millisecond)
	waitForState(t, coord, syncer.StateIdle)

	channel.mu.Lock()
	channel.writeErr = nil
	channel.mu.Unlock()

	require.NoError(t, coord.Flush())
	waitForWrites(t, channel, 2)
	require.Equal(t, "Keep me", channel.lastWrite()["title"])

	// Flush with nothing dirty is a no-op.
	waitForState(t, coord, syncer.StateCooldown)
	clock.Advance(600 * time.Millisecond)
	waitForState(t, coord, syncer.StateIdle)
	require.NoError(t, coord.Flush())
	require.Equal(t, 2, channel.writeCount())
}

func TestCoordinator_InvalidMutationIsNoOp(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	err := coord.Apply(plan.DeleteTask("no-such-task"))
	require.ErrorIs(t, err, plan.ErrTaskNotFound)

	// Buffer untouched, no debounce cycle started.
	require.Equal(t, syncer.StateIdle, coord.State())
	require.False(t, coord.Dirty())
	clock.Advance(2 * time.Second)
	require.Equal(t, 0, channel.writeCount())
}

func TestCoordinator_CloseCancelsPendingDebounce(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	require.NoError(t, coord.Apply(plan.SetTitle("Never saved")))
	coord.Close()

	clock.Advance(2 * time.Second)
	require.Equal(t, 0, channel.writeCount())
	require.ErrorIs(t, coord.Apply(plan.SetTitle("x")), syncer.ErrClosed)
}

func TestCoordinator_WritesStripDerivedTrust(t *testing.T) {
	coord, channel, clock, _ := newTestCoordinator(t)

	require.NoError(t, coord.ToggleCompletion("t1", true))
	waitForWrites(t, channel, 1)
	_ = clock

	// The flushed document carries the server-time sentinel for updated_at,
	// resolved by the channel, not a client clock value.
	doc := channel.lastWrite()
	require.Equal(t, remote.ServerTimestamp, doc["updated_at"])
}

func TestManager_OpenGetClose(t *testing.T) {
	channel := newFakeChannel()
	mgr := syncer.NewManager(channel, syncer.Options{Clock: newFakeClock()})

	coord := mgr.Open("tenants/u1/projects/p1", plan.Normalize(nil))
	again := mgr.Open("tenants/u1/projects/p1", plan.Normalize(nil))
	require.Same(t, coord, again)

	got, ok := mgr.Get("tenants/u1/projects/p1")
	require.True(t, ok)
	require.Same(t, coord, got)

	mgr.Close("tenants/u1/projects/p1")
	_, ok = mgr.Get("tenants/u1/projects/p1")
	require.False(t, ok)
	require.ErrorIs(t, coord.Apply(plan.SetTitle("x")), syncer.ErrClosed)
}

func TestManager_SubscriptionFeedsCoordinator(t *testing.T) {
	channel := newFakeChannel()
	mgr := syncer.NewManager(channel, syncer.Options{Clock: newFakeClock()})
	defer mgr.CloseAll()

	coord := mgr.Open("tenants/u1/projects/p1", plan.Normalize(nil))

	channel.stream <- remote.Document{"id": "p1", "title": "Pushed"}
	require.Eventually(t, func() bool {
		return coord.Project().Title == "Pushed"
	}, 2*time.Second, time.Millisecond)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", syncer.StateIdle.String())
	require.Equal(t, "pending_debounce", syncer.StatePendingDebounce.String())
	require.Equal(t, "writing", syncer.StateWriting.String())
	require.Equal(t, "cooldown", syncer.StateCooldown.String())
}
