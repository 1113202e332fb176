package storage

import (
	"context"
	"database/sql"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return persistenceError("open", s.path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		return persistenceError("ping", s.path, multierror.Append(err, db.Close()).ErrorOrNil())
	}

	if err := createTables(ctx, db); err != nil {
		return persistenceError("create tables", s.path, multierror.Append(err, db.Close()).ErrorOrNil())
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTable(ctx context.Context, role model.Role, table *qtable.Table) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTable(table)
	if err != nil {
		return persistenceError("encode table", role.String(), err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO q_tables (role, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(role) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, role.String(), CurrentSchemaVersion, CurrentCodecVersion, payload)
	if err != nil {
		return persistenceError("save table", role.String(), err)
	}
	return nil
}

func (s *SQLiteStore) GetTable(ctx context.Context, role model.Role) (*qtable.Table, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM q_tables WHERE role = ?`, role.String()).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, persistenceError("load table", role.String(), err)
	}

	table, err := DecodeTable(payload)
	if err != nil {
		return nil, false, persistenceError("decode table", role.String(), err)
	}
	return table, true, nil
}

func (s *SQLiteStore) SaveCheckpoints(ctx context.Context, runID string, checkpoints []model.Checkpoint) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCheckpoints(runID, checkpoints)
	if err != nil {
		return persistenceError("encode checkpoints", runID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	if err != nil {
		return persistenceError("save checkpoints", runID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCheckpoints(ctx context.Context, runID string) ([]model.Checkpoint, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, persistenceError("load checkpoints", runID, err)
	}

	checkpoints, err := DecodeCheckpoints(payload)
	if err != nil {
		return nil, false, persistenceError("decode checkpoints", runID, err)
	}
	return checkpoints, true, nil
}

func (s *SQLiteStore) AppendEvaluation(ctx context.Context, record model.EvaluationRecord) error {
	payload, err := EncodeEvaluation(record)
	if err != nil {
		return persistenceError("encode evaluation", record.RunID, err)
	}
	return s.appendRow(ctx, "evaluations", payload)
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, limit int) ([]model.EvaluationRecord, error) {
	payloads, err := s.listRows(ctx, "evaluations", limit)
	if err != nil {
		return nil, err
	}
	records := make([]model.EvaluationRecord, 0, len(payloads))
	for _, payload := range payloads {
		rec, err := DecodeEvaluation(payload)
		if err != nil {
			return nil, persistenceError("decode evaluation", s.path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *SQLiteStore) AppendGame(ctx context.Context, record model.GameRecord) error {
	payload, err := EncodeGame(record)
	if err != nil {
		return persistenceError("encode game", record.ID, err)
	}
	return s.appendRow(ctx, "games", payload)
}

func (s *SQLiteStore) ListGames(ctx context.Context, limit int) ([]model.GameRecord, error) {
	payloads, err := s.listRows(ctx, "games", limit)
	if err != nil {
		return nil, err
	}
	records := make([]model.GameRecord, 0, len(payloads))
	for _, payload := range payloads {
		rec, err := DecodeGame(payload)
		if err != nil {
			return nil, persistenceError("decode game", s.path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// appendRow and listRows only ever receive the fixed table names above.
func (s *SQLiteStore) appendRow(ctx context.Context, table string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO `+table+` (payload) VALUES (?)`, payload); err != nil {
		return persistenceError("append", table, err)
	}
	return nil
}

func (s *SQLiteStore) listRows(ctx context.Context, table string, limit int) ([][]byte, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM `+table+` ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, persistenceError("list", table, err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, persistenceError("list", table, err)
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list", table, err)
	}
	return payloads, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS q_tables (
			role TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS checkpoints (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS evaluations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS games (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			payload BLOB NOT NULL
		);
	`)
	return err
}
