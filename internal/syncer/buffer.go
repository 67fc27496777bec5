package syncer

import "github.com/rpenna/planweave/internal/domain/plan"

// EditBuffer holds the current canonical project as seen by callers. All
// mutations go through pure plan.Mutation transformations, so a snapshot
// handed out by Current is never modified afterwards.
//
// The buffer carries no lock of its own; the owning Coordinator serializes
// access.
type EditBuffer struct {
	project *plan.Project
	dirty   bool
}

// NewEditBuffer wraps an initial project value.
func NewEditBuffer(p *plan.Project) *EditBuffer {
	if p == nil {
		p = plan.Normalize(nil)
	}
	return &EditBuffer{project: p}
}

// Current returns the buffered project snapshot.
func (b *EditBuffer) Current() *plan.Project { return b.project }

// Dirty reports whether the buffer holds edits not yet persisted.
func (b *EditBuffer) Dirty() bool { return b.dirty }

// Apply runs a pure mutation against the buffer, marking it dirty on success.
// The derived progress value is recomputed so snapshots handed out between
// the edit and the next normalization stay consistent.
func (b *EditBuffer) Apply(m plan.Mutation) error {
	next, err := m(b.project)
	if err != nil {
		return err
	}
	next.Progress = plan.Progress(next)
	b.project = next
	b.dirty = true
	return nil
}

// Replace swaps in a new canonical value, typically a normalized remote
// snapshot, and clears the dirty flag.
func (b *EditBuffer) Replace(p *plan.Project) {
	b.project = p
	b.dirty = false
}

// MarkDirty flags the buffer as out of sync with the remote document, used
// after a failed flush so the next attempt carries the same edits.
func (b *EditBuffer) MarkDirty() { b.dirty = true }

// ClearDirty flags the buffer as persisted.
func (b *EditBuffer) ClearDirty() { b.dirty = false }
