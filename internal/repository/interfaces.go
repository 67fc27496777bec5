package repository

import (
	"context"
	"time"
)

// StoredDocument is a full document row as persisted.
type StoredDocument struct {
	Path       string
	Body       []byte
	Revision   int64
	ModifiedAt time.Time
}

// SaveEvent records one full-document write for history purposes.
type SaveEvent struct {
	Path      string
	Revision  int64
	Origin    string
	WrittenAt time.Time
}

// DocumentRepository persists full JSON documents keyed by path. Writes are
// whole-document replacements; the store assigns the modification time.
type DocumentRepository interface {
	Put(ctx context.Context, path string, body []byte) (StoredDocument, error)
	Get(ctx context.Context, path string) (StoredDocument, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]StoredDocument, error)
}

// HistoryRepository records document save events.
type HistoryRepository interface {
	Append(ctx context.Context, event SaveEvent) error
	List(ctx context.Context, path string, limit int) ([]SaveEvent, error)
}
