package storage

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

const (
	checkpointsDir  = "checkpoints"
	evaluationsFile = "evaluations.jsonl"
	gamesFile       = "games.jsonl"
)

// SaveTableFile writes t to path atomically.
func SaveTableFile(path string, t *qtable.Table) error {
	payload, err := EncodeTable(t)
	if err != nil {
		return persistenceError("encode table", path, err)
	}
	if err := writeFileAtomic(path, payload); err != nil {
		return persistenceError("save table", path, err)
	}
	return nil
}

// LoadTableFile reads a table written by SaveTableFile. A missing file is
// reported as found == false with a nil error.
func LoadTableFile(path string) (*qtable.Table, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, persistenceError("load table", path, err)
	}
	t, err := DecodeTable(data)
	if err != nil {
		return nil, false, persistenceError("decode table", path, err)
	}
	return t, true, nil
}

// FileStore keeps one JSON file per role plus append-only JSON-lines logs in
// a directory.
type FileStore struct {
	dir string

	mu sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// TablePath is where the table of role lives.
func (s *FileStore) TablePath(role model.Role) string {
	return filepath.Join(s.dir, role.String()+".json")
}

func (s *FileStore) Init(_ context.Context) error {
	if s.dir == "" {
		return errors.New("file store directory is required")
	}
	if err := os.MkdirAll(filepath.Join(s.dir, checkpointsDir), 0o755); err != nil {
		return persistenceError("init", s.dir, err)
	}
	return nil
}

func (s *FileStore) SaveTable(_ context.Context, role model.Role, table *qtable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaveTableFile(s.TablePath(role), table)
}

func (s *FileStore) GetTable(_ context.Context, role model.Role) (*qtable.Table, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadTableFile(s.TablePath(role))
}

func (s *FileStore) SaveCheckpoints(_ context.Context, runID string, checkpoints []model.Checkpoint) error {
	if err := model.ValidateRunID(runID); err != nil {
		return err
	}
	path := filepath.Join(s.dir, checkpointsDir, runID+".json")
	payload, err := EncodeCheckpoints(runID, checkpoints)
	if err != nil {
		return persistenceError("encode checkpoints", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(path, payload); err != nil {
		return persistenceError("save checkpoints", path, err)
	}
	return nil
}

func (s *FileStore) GetCheckpoints(_ context.Context, runID string) ([]model.Checkpoint, bool, error) {
	if err := model.ValidateRunID(runID); err != nil {
		return nil, false, err
	}
	path := filepath.Join(s.dir, checkpointsDir, runID+".json")

	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, persistenceError("load checkpoints", path, err)
	}
	checkpoints, err := DecodeCheckpoints(data)
	if err != nil {
		return nil, false, persistenceError("decode checkpoints", path, err)
	}
	return checkpoints, true, nil
}

func (s *FileStore) AppendEvaluation(_ context.Context, record model.EvaluationRecord) error {
	payload, err := EncodeEvaluation(record)
	if err != nil {
		return persistenceError("encode evaluation", evaluationsFile, err)
	}
	return s.appendLine(evaluationsFile, payload)
}

func (s *FileStore) ListEvaluations(_ context.Context, limit int) ([]model.EvaluationRecord, error) {
	lines, err := s.readLines(evaluationsFile)
	if err != nil {
		return nil, err
	}
	records := make([]model.EvaluationRecord, 0, len(lines))
	for i, line := range lines {
		rec, err := DecodeEvaluation(line)
		if err != nil {
			return nil, persistenceError("decode evaluation", filepath.Join(s.dir, evaluationsFile), errors.Wrapf(err, "line %d", i+1))
		}
		records = append(records, rec)
	}
	return newestFirst(records, limit), nil
}

func (s *FileStore) AppendGame(_ context.Context, record model.GameRecord) error {
	payload, err := EncodeGame(record)
	if err != nil {
		return persistenceError("encode game", gamesFile, err)
	}
	return s.appendLine(gamesFile, payload)
}

func (s *FileStore) ListGames(_ context.Context, limit int) ([]model.GameRecord, error) {
	lines, err := s.readLines(gamesFile)
	if err != nil {
		return nil, err
	}
	records := make([]model.GameRecord, 0, len(lines))
	for i, line := range lines {
		rec, err := DecodeGame(line)
		if err != nil {
			return nil, persistenceError("decode game", filepath.Join(s.dir, gamesFile), errors.Wrapf(err, "line %d", i+1))
		}
		records = append(records, rec)
	}
	return newestFirst(records, limit), nil
}

func (s *FileStore) appendLine(name string, payload []byte) error {
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return persistenceError("append", path, err)
	}
	if _, err := f.Write(append(payload, '\n')); err != nil {
		_ = f.Close()
		return persistenceError("append", path, err)
	}
	if err := f.Close(); err != nil {
		return persistenceError("append", path, err)
	}
	return nil
}

func (s *FileStore) readLines(name string) ([][]byte, error) {
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, persistenceError("read", path, err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, persistenceError("read", path, err)
	}
	return lines, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
