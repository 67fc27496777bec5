package mocks

import (
	"context"

	"github.com/rpenna/planweave/internal/repository"
	"github.com/stretchr/testify/mock"
)

// DocumentRepository is a mock for repository.DocumentRepository.
type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Put(ctx context.Context, path string, body []byte) (repository.StoredDocument, error) {
	args := m.Called(ctx, path, body)
	if doc, ok := args.Get(0).(repository.StoredDocument); ok {
		return doc, args.Error(1)
	}
	return repository.StoredDocument{}, args.Error(1)
}

func (m *DocumentRepository) Get(ctx context.Context, path string) (repository.StoredDocument, error) {
	args := m.Called(ctx, path)
	if doc, ok := args.Get(0).(repository.StoredDocument); ok {
		return doc, args.Error(1)
	}
	return repository.StoredDocument{}, args.Error(1)
}

func (m *DocumentRepository) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *DocumentRepository) List(ctx context.Context, prefix string) ([]repository.StoredDocument, error) {
	args := m.Called(ctx, prefix)
	if docs, ok := args.Get(0).([]repository.StoredDocument); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

// HistoryRepository is a mock for repository.HistoryRepository.
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) Append(ctx context.Context, event repository.SaveEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *HistoryRepository) List(ctx context.Context, path string, limit int) ([]repository.SaveEvent, error) {
	args := m.Called(ctx, path, limit)
	if events, ok := args.Get(0).([]repository.SaveEvent); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}
