package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpenna/planweave/internal/repository"
)

// DocumentRepository implements repository.DocumentRepository for SQLite
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Put replaces the document at path, bumping its revision. The modification
// time is assigned here, never taken from the caller.
func (r *DocumentRepository) Put(ctx context.Context, path string, body []byte) (repository.StoredDocument, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.StoredDocument{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO documents (path, body, revision, modified_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET
			body = excluded.body,
			revision = documents.revision + 1,
			modified_at = excluded.modified_at
	`
	if _, err := tx.ExecContext(ctx, query, path, string(body), now); err != nil {
		return repository.StoredDocument{}, fmt.Errorf("failed to put document: %w", err)
	}

	var revision int64
	if err := tx.QueryRowContext(ctx, `SELECT revision FROM documents WHERE path = ?`, path).Scan(&revision); err != nil {
		return repository.StoredDocument{}, fmt.Errorf("failed to read revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return repository.StoredDocument{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return repository.StoredDocument{
		Path:       path,
		Body:       body,
		Revision:   revision,
		ModifiedAt: now,
	}, nil
}

// Get retrieves a document by path
func (r *DocumentRepository) Get(ctx context.Context, path string) (repository.StoredDocument, error) {
	query := `
		SELECT path, body, revision, modified_at
		FROM documents
		WHERE path = ?
	`

	var doc repository.StoredDocument
	var body string
	err := r.db.QueryRowContext(ctx, query, path).Scan(
		&doc.Path,
		&body,
		&doc.Revision,
		&doc.ModifiedAt,
	)

	if err == sql.ErrNoRows {
		return repository.StoredDocument{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.StoredDocument{}, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Body = []byte(body)
	return doc, nil
}

// Delete removes a document by path
func (r *DocumentRepository) Delete(ctx context.Context, path string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns all documents whose path starts with prefix, ordered by path
func (r *DocumentRepository) List(ctx context.Context, prefix string) ([]repository.StoredDocument, error) {
	query := `
		SELECT path, body, revision, modified_at
		FROM documents
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY path ASC
	`

	rows, err := r.db.QueryContext(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []repository.StoredDocument
	for rows.Next() {
		var doc repository.StoredDocument
		var body string
		if err := rows.Scan(&doc.Path, &body, &doc.Revision, &doc.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Body = []byte(body)
		docs = append(docs, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}
