package sqlite

import (
	"context"
	"fmt"

	"github.com/rpenna/planweave/internal/repository"
)

// HistoryRepository implements repository.HistoryRepository for SQLite
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append records a save event
func (r *HistoryRepository) Append(ctx context.Context, event repository.SaveEvent) error {
	query := `
		INSERT INTO document_history (path, revision, origin, written_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.Path,
		event.Revision,
		event.Origin,
		event.WrittenAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append save event: %w", err)
	}

	return nil
}

// List returns the most recent save events for a path, newest first
func (r *HistoryRepository) List(ctx context.Context, path string, limit int) ([]repository.SaveEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT path, revision, origin, written_at
		FROM document_history
		WHERE path = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, path, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list save events: %w", err)
	}
	defer rows.Close()

	var events []repository.SaveEvent
	for rows.Next() {
		var event repository.SaveEvent
		if err := rows.Scan(&event.Path, &event.Revision, &event.Origin, &event.WrittenAt); err != nil {
			return nil, fmt.Errorf("failed to scan save event: %w", err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating save event rows: %w", err)
	}

	return events, nil
}
