package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/remote"
)

// State is the coordinator's position in its write lifecycle.
type State int

const (
	// StateIdle: no pending local write; remote notifications are applied.
	StateIdle State = iota
	// StatePendingDebounce: a flush timer is running; remote notifications
	// are still applied because the edit has not reached the store yet.
	StatePendingDebounce
	// StateWriting: a flush is in flight; remote notifications are dropped
	// since they are the echo of the write or a stale pre-write snapshot.
	StateWriting
	// StateCooldown: short window after a write resolves during which the
	// store may still deliver the pre-write snapshot; notifications stay
	// suppressed until it elapses.
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingDebounce:
		return "pending_debounce"
	case StateWriting:
		return "writing"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

const (
	// DefaultDebounce coalesces bursts of edits into one write.
	DefaultDebounce = 400 * time.Millisecond
	// DefaultCooldown keeps suppressing remote notifications after a write
	// resolves. The store's subscription can momentarily deliver the
	// pre-write snapshot (read-after-write race); a longer cooldown trades
	// responsiveness for safety against slow propagation.
	DefaultCooldown = 600 * time.Millisecond

	writeTimeout = 30 * time.Second
)

// ErrClosed indicates the coordinator no longer accepts edits.
var ErrClosed = errors.New("coordinator closed")

// Options tune a Coordinator. Zero values fall back to defaults.
type Options struct {
	Debounce time.Duration
	Cooldown time.Duration
	Clock    Clock
	Notifier Notifier
	Logger   *slog.Logger
}

// Coordinator owns the decision of when the edit buffer is flushed to the
// remote document and which remote notifications are allowed to replace it.
// It governs a single document; writes to that document are serialized.
type Coordinator struct {
	path     string
	channel  remote.Channel
	clock    Clock
	debounce time.Duration
	cooldown time.Duration
	notifier Notifier
	logger   *slog.Logger

	mu            sync.Mutex
	state         State
	buf           *EditBuffer
	debounceTimer Timer
	cooldownTimer Timer
	editPending   bool
	flushPending  bool
	closed        bool
}

// NewCoordinator creates a coordinator for one document path seeded with an
// initial project value.
func NewCoordinator(channel remote.Channel, path string, initial *plan.Project, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{logger: opts.Logger}
	}
	return &Coordinator{
		path:     path,
		channel:  channel,
		clock:    opts.Clock,
		debounce: opts.Debounce,
		cooldown: opts.Cooldown,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		state:    StateIdle,
		buf:      NewEditBuffer(initial),
	}
}

// Path returns the document path this coordinator governs.
func (c *Coordinator) Path() string { return c.path }

// Project returns the current buffered project. Safe to hand out: the tree
// is never mutated in place.
func (c *Coordinator) Project() *plan.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Current()
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dirty reports whether unsaved edits exist.
func (c *Coordinator) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Dirty()
}

// Apply runs a local edit through the debounce path. A mutation that fails
// (unknown phase or task id) leaves the buffer and state untouched; the
// error is returned for reporting but the editing surface stays available.
func (c *Coordinator) Apply(m plan.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.buf.Apply(m); err != nil {
		c.logger.Debug("mutation dropped", "path", c.path, "error", err)
		return err
	}

	switch c.state {
	case StateIdle, StatePendingDebounce:
		c.restartDebounceLocked()
	case StateWriting, StateCooldown:
		// Picked up by the next debounce cycle once the write settles.
		c.editPending = true
	}
	return nil
}

// ToggleCompletion is the optimistic completion path: it bypasses the
// debounce and issues an immediate full-document write, cancelling any
// pending flush timer (pending edits ride along in the same write). While a
// write is already in flight the toggle is queued so writes stay serialized,
// and flushes as soon as the cooldown elapses with no debounce window.
func (c *Coordinator) ToggleCompletion(taskID string, done bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.buf.Apply(plan.SetCompletion(taskID, done, c.clock.Now())); err != nil {
		c.logger.Debug("completion toggle dropped", "path", c.path, "error", err)
		return err
	}

	switch c.state {
	case StateIdle:
		c.startWriteLocked()
	case StatePendingDebounce:
		c.stopDebounceLocked()
		c.startWriteLocked()
	case StateWriting, StateCooldown:
		c.flushPending = true
	}
	return nil
}

// Flush forces a write of unsaved edits without waiting for the debounce,
// used for manual retry after a failed save. No-op when nothing is dirty.
// Like a toggle, a flush queued behind an in-flight write starts as soon as
// the cooldown elapses.
func (c *Coordinator) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.buf.Dirty() {
		return nil
	}

	switch c.state {
	case StateIdle:
		c.startWriteLocked()
	case StatePendingDebounce:
		c.stopDebounceLocked()
		c.startWriteLocked()
	case StateWriting, StateCooldown:
		c.flushPending = true
	}
	return nil
}

// HandleRemote feeds one remote notification through the suppression check.
// In Writing and Cooldown the snapshot is dropped; otherwise the normalized
// document replaces the buffer.
func (c *Coordinator) HandleRemote(doc remote.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.state == StateWriting || c.state == StateCooldown {
		c.logger.Debug("suppressed remote notification", "path", c.path, "state", c.state.String())
		return
	}
	if doc == nil {
		// Deleted remotely; keep the local buffer rather than blanking the
		// editing surface.
		c.logger.Warn("document deleted remotely", "path", c.path)
		return
	}

	c.buf.Replace(plan.Normalize(doc))
	if c.state == StatePendingDebounce {
		// The pending flush still fires and writes the replaced state back.
		c.buf.MarkDirty()
	}
}

// Run subscribes to the document and applies notifications until ctx is
// done. Cancelling ctx stops the subscription and any pending debounce, but
// never an in-flight write.
func (c *Coordinator) Run(ctx context.Context) error {
	stream, err := c.channel.Subscribe(ctx, c.path)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case doc, ok := <-stream:
			if !ok {
				return nil
			}
			c.HandleRemote(doc)
		}
	}
}

// Close cancels the pending debounce timer and stops accepting edits. An
// in-flight write is left to complete; its outcome is ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopDebounceLocked()
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
		c.cooldownTimer = nil
	}
}

// restartDebounceLocked (re)starts the trailing-edge debounce timer.
func (c *Coordinator) restartDebounceLocked() {
	c.stopDebounceLocked()
	c.state = StatePendingDebounce
	c.debounceTimer = c.clock.AfterFunc(c.debounce, c.onDebounceFired)
}

func (c *Coordinator) stopDebounceLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}

func (c *Coordinator) onDebounceFired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != StatePendingDebounce {
		return
	}
	c.debounceTimer = nil
	c.startWriteLocked()
}

// startWriteLocked snapshots the buffer and issues the flush. Only reachable
// from Idle and PendingDebounce, which serializes writes per document.
func (c *Coordinator) startWriteLocked() {
	c.state = StateWriting
	c.buf.ClearDirty()

	doc := plan.ToRaw(c.buf.Current())
	doc["updated_at"] = remote.ServerTimestamp

	go c.performWrite(doc)
}

func (c *Coordinator) performWrite(doc remote.Document) {
	// Detached from any caller context: navigation away must not cancel an
	// in-flight write.
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := c.channel.WriteFull(ctx, c.path, doc)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// Edits stay in the buffer; no automatic retry. The next edit or a
		// manual flush triggers another attempt.
		c.buf.MarkDirty()
		c.logger.Warn("flush failed", "path", c.path, "error", err)
		c.notifier.SaveFailed(c.path, err)
	}

	if c.closed {
		c.state = StateIdle
		return
	}

	// Failure still enters cooldown to avoid fighting a rapid echo.
	c.state = StateCooldown
	c.cooldownTimer = c.clock.AfterFunc(c.cooldown, c.onCooldownElapsed)
}

func (c *Coordinator) onCooldownElapsed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != StateCooldown {
		return
	}
	c.cooldownTimer = nil
	if c.flushPending {
		// A queued toggle or manual flush asked for an immediate write; it
		// carries any queued plain edits along, so both flags clear.
		c.flushPending = false
		c.editPending = false
		c.startWriteLocked()
		return
	}
	if c.editPending {
		c.editPending = false
		c.restartDebounceLocked()
		return
	}
	c.state = StateIdle
}
