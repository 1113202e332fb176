package storage

import (
	"context"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

// Store persists value tables and the records produced around them.
// Get methods report a missing record as (zero, false, nil); any other
// failure is an error.
type Store interface {
	Init(ctx context.Context) error
	SaveTable(ctx context.Context, role model.Role, table *qtable.Table) error
	GetTable(ctx context.Context, role model.Role) (*qtable.Table, bool, error)
	SaveCheckpoints(ctx context.Context, runID string, checkpoints []model.Checkpoint) error
	GetCheckpoints(ctx context.Context, runID string) ([]model.Checkpoint, bool, error)
	// AppendEvaluation and AppendGame never overwrite earlier records. The
	// List methods return newest first; limit <= 0 returns everything.
	AppendEvaluation(ctx context.Context, record model.EvaluationRecord) error
	ListEvaluations(ctx context.Context, limit int) ([]model.EvaluationRecord, error)
	AppendGame(ctx context.Context, record model.GameRecord) error
	ListGames(ctx context.Context, limit int) ([]model.GameRecord, error)
}
