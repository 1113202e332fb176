package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	tables      map[model.Role]*qtable.Table
	checkpoints map[string][]model.Checkpoint
	evaluations []model.EvaluationRecord
	games       []model.GameRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.tables = make(map[model.Role]*qtable.Table)
	s.checkpoints = make(map[string][]model.Checkpoint)
	s.evaluations = nil
	s.games = nil
	return nil
}

func (s *MemoryStore) SaveTable(_ context.Context, role model.Role, table *qtable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}

	s.tables[role] = table.Clone()
	return nil
}

func (s *MemoryStore) GetTable(_ context.Context, role model.Role) (*qtable.Table, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}

	table, ok := s.tables[role]
	if !ok {
		return nil, false, nil
	}
	return table.Clone(), true, nil
}

func (s *MemoryStore) SaveCheckpoints(_ context.Context, runID string, checkpoints []model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}

	s.checkpoints[runID] = append([]model.Checkpoint(nil), checkpoints...)
	return nil
}

func (s *MemoryStore) GetCheckpoints(_ context.Context, runID string) ([]model.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}

	checkpoints, ok := s.checkpoints[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.Checkpoint(nil), checkpoints...), true, nil
}

func (s *MemoryStore) AppendEvaluation(_ context.Context, record model.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}

	record.VersionedRecord = currentVersion()
	s.evaluations = append(s.evaluations, record)
	return nil
}

func (s *MemoryStore) ListEvaluations(_ context.Context, limit int) ([]model.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}

	return newestFirst(s.evaluations, limit), nil
}

func (s *MemoryStore) AppendGame(_ context.Context, record model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}

	record.VersionedRecord = currentVersion()
	record.Moves = append([]model.GameMove(nil), record.Moves...)
	s.games = append(s.games, record)
	return nil
}

func (s *MemoryStore) ListGames(_ context.Context, limit int) ([]model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}

	return newestFirst(s.games, limit), nil
}

// newestFirst returns a reversed copy of an append-ordered slice.
func newestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}
