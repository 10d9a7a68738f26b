package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/ragline/pkg/logger"
	"github.com/papercomputeco/ragline/pkg/vector"
	"github.com/papercomputeco/ragline/pkg/vector/inmemory"
)

// ErrInjected is returned by MockVectorDriver when a fault is injected.
var ErrInjected = errors.New("injected vector store fault")

// MockVectorDriver is an in-memory vector driver with fault injection.
type MockVectorDriver struct {
	*inmemory.Driver

	mu sync.Mutex

	// FailUpserts makes the next N Upsert calls fail.
	FailUpserts int

	// PartialWrite makes failing Upserts store the first half of the batch
	// before returning, like a backend that dies mid-batch.
	PartialWrite bool

	// SearchErr is returned by Search when set.
	SearchErr error

	// DeleteErr is returned by Delete and DeleteChunks when set.
	DeleteErr error

	UpsertCalls int
	SearchCalls int
	DeleteCalls int

	// Deleted holds document IDs passed to Delete, DeletedChunks the chunk IDs
	// passed to DeleteChunks.
	Deleted       []string
	DeletedChunks []string
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{Driver: inmemory.NewDriver(logger.Nop())}
}

func (m *MockVectorDriver) Upsert(ctx context.Context, records []vector.Record) error {
	m.mu.Lock()
	m.UpsertCalls++
	fail := m.FailUpserts > 0
	if fail {
		m.FailUpserts--
	}
	m.mu.Unlock()

	if fail {
		if m.PartialWrite && len(records) > 1 {
			if err := m.Driver.Upsert(ctx, records[:len(records)/2]); err != nil {
				return err
			}
		}
		return ErrInjected
	}
	return m.Driver.Upsert(ctx, records)
}

func (m *MockVectorDriver) Search(ctx context.Context, query []float32, k int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	m.SearchCalls++
	err := m.SearchErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.Driver.Search(ctx, query, k)
}

func (m *MockVectorDriver) Delete(ctx context.Context, documentID string) error {
	m.mu.Lock()
	m.DeleteCalls++
	m.Deleted = append(m.Deleted, documentID)
	err := m.DeleteErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.Driver.Delete(ctx, documentID)
}

func (m *MockVectorDriver) DeleteChunks(ctx context.Context, ids []string) error {
	m.mu.Lock()
	m.DeleteCalls++
	m.DeletedChunks = append(m.DeletedChunks, ids...)
	err := m.DeleteErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.Driver.DeleteChunks(ctx, ids)
}

