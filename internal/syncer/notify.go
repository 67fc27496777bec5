package syncer

import "log/slog"

// Notifier receives user-facing notices from the coordinator. Save failures
// are non-fatal: local edits are preserved and no retry is scheduled.
type Notifier interface {
	SaveFailed(path string, err error)
}

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) SaveFailed(path string, err error) {
	n.logger.Warn("project save failed, edits kept locally", "path", path, "error", err)
}
