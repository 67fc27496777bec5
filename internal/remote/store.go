package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpenna/planweave/internal/repository"
)

// Store implements Channel over a document repository plus an in-process
// notification hub. It performs no retries; failures surface to the caller.
type Store struct {
	docs    repository.DocumentRepository
	history repository.HistoryRepository
	hub     *Hub
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a document channel backed by the given repositories.
// The history repository may be nil; save events are then not recorded.
func NewStore(docs repository.DocumentRepository, history repository.HistoryRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		docs:    docs,
		history: history,
		hub:     NewHub(logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Subscribe delivers full-document snapshots for path until ctx is done.
func (s *Store) Subscribe(ctx context.Context, path string) (<-chan Document, error) {
	ch, cancel := s.hub.Subscribe(path)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, nil
}

// WriteFull replaces the document at path atomically, stripping absent
// sentinels and resolving server timestamps, then fans the new snapshot out
// to all subscribers including the writer.
func (s *Store) WriteFull(ctx context.Context, path string, doc Document) error {
	return s.write(ctx, path, doc, "client")
}

// WriteFullAs is WriteFull with an explicit origin label for save history.
func (s *Store) WriteFullAs(ctx context.Context, path string, doc Document, origin string) error {
	return s.write(ctx, path, doc, origin)
}

func (s *Store) write(ctx context.Context, path string, doc Document, origin string) error {
	stripped := StripAbsent(doc)
	resolved, _ := resolveServerTime(stripped, s.now()).(Document)

	body, err := json.Marshal(resolved)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	stored, err := s.docs.Put(ctx, path, body)
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	if s.history != nil {
		if err := s.history.Append(ctx, repository.SaveEvent{
			Path:      path,
			Revision:  stored.Revision,
			Origin:    origin,
			WrittenAt: stored.ModifiedAt,
		}); err != nil {
			s.logger.Warn("failed to record save event", "path", path, "error", err)
		}
	}

	s.hub.Publish(path, resolved)
	return nil
}

// ReadOnce returns the current document at path, or nil when it does not exist.
func (s *Store) ReadOnce(ctx context.Context, path string) (Document, error) {
	stored, err := s.docs.Get(ctx, path)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return decodeBody(stored.Body)
}

// Delete removes the document at path and notifies subscribers with a nil
// snapshot.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := s.docs.Delete(ctx, path); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("deleting document: %w", err)
	}
	s.hub.Publish(path, nil)
	return nil
}

// ListPrefix returns every stored document under a path prefix, decoded.
func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]Document, error) {
	stored, err := s.docs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	docs := make([]Document, 0, len(stored))
	for _, row := range stored {
		doc, err := decodeBody(row.Body)
		if err != nil {
			s.logger.Warn("skipping undecodable document", "path", row.Path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeBody(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}
