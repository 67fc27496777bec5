package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rpenna/planweave/internal/domain/plan"
	"github.com/rpenna/planweave/internal/remote"
)

// Manager tracks one coordinator per open document. Switching away from a
// project cancels its pending debounce (via Close) but lets any in-flight
// write complete.
type Manager struct {
	channel remote.Channel
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	editors map[string]*editor
}

type editor struct {
	coord  *Coordinator
	cancel context.CancelFunc
}

// NewManager creates a coordinator manager over a document channel.
func NewManager(channel remote.Channel, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		channel: channel,
		opts:    opts,
		logger:  logger,
		editors: make(map[string]*editor),
	}
}

// Open attaches a coordinator to the document path, seeding it with the
// given project and starting its subscription loop. Opening an already open
// path returns the existing coordinator.
func (m *Manager) Open(path string, initial *plan.Project) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ed, ok := m.editors[path]; ok {
		return ed.coord
	}

	coord := NewCoordinator(m.channel, path, initial, m.opts)
	ctx, cancel := context.WithCancel(context.Background())
	m.editors[path] = &editor{coord: coord, cancel: cancel}

	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("subscription loop ended", "path", path, "error", err)
		}
	}()

	m.logger.Info("project opened", "path", path)
	return coord
}

// Get returns the coordinator for an open path.
func (m *Manager) Get(path string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ed, ok := m.editors[path]
	if !ok {
		return nil, false
	}
	return ed.coord, true
}

// Close detaches the coordinator for a path, cancelling its subscription
// and pending debounce.
func (m *Manager) Close(path string) {
	m.mu.Lock()
	ed, ok := m.editors[path]
	if ok {
		delete(m.editors, path)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	ed.cancel()
	ed.coord.Close()
	m.logger.Info("project closed", "path", path)
}

// CloseAll detaches every open coordinator.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	editors := m.editors
	m.editors = make(map[string]*editor)
	m.mu.Unlock()

	for _, ed := range editors {
		ed.cancel()
		ed.coord.Close()
	}
}
