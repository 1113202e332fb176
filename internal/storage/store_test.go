package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

func sampleTable(t *testing.T) *qtable.Table {
	t.Helper()
	table := qtable.New()
	start := board.Board{}.Key()
	next, err := board.Board{}.Apply(board.Coord{Row: 1, Col: 1}, board.X)
	require.NoError(t, err)

	table.Set(start, qtable.Values{0, 0, 0, 0, 0.5, 0, 0, 0, -0.1})
	table.Set(next.Key(), qtable.Values{1: -0.25, 7: 0.125})
	return table
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]Store{
		KindMemory: NewMemoryStore(),
		KindFile:   NewFileStore(filepath.Join(dir, "models")),
		KindSQLite: NewSQLiteStore(filepath.Join(dir, "ttt.db")),
	}
}

func TestStoreTableRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			defer func() { require.NoError(t, CloseIfSupported(store)) }()

			_, ok, err := store.GetTable(ctx, model.Attack)
			require.NoError(t, err)
			assert.False(t, ok, "fresh store must not report a table")

			input := sampleTable(t)
			require.NoError(t, store.SaveTable(ctx, model.Attack, input))

			output, ok, err := store.GetTable(ctx, model.Attack)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, input.Equal(output, 0))

			_, ok, err = store.GetTable(ctx, model.Defence)
			require.NoError(t, err)
			assert.False(t, ok, "roles are stored separately")
		})
	}
}

func TestStoreTableOverwrite(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			defer func() { require.NoError(t, CloseIfSupported(store)) }()

			require.NoError(t, store.SaveTable(ctx, model.Defence, sampleTable(t)))
			require.NoError(t, store.SaveTable(ctx, model.Defence, qtable.New()))

			output, ok, err := store.GetTable(ctx, model.Defence)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 0, output.Len())
		})
	}
}

func TestStoreCheckpointsRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			defer func() { require.NoError(t, CloseIfSupported(store)) }()

			input := []model.Checkpoint{
				{Episode: 10, Epsilon: 0.5, Attack: model.Tally{Games: 4, Wins: 3, Losses: 1}},
				{Episode: 20, Epsilon: 0.25, Defence: model.Tally{Games: 4, Draws: 4}},
			}
			require.NoError(t, store.SaveCheckpoints(ctx, "run-1", input))

			output, ok, err := store.GetCheckpoints(ctx, "run-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, input, output)

			_, ok, err = store.GetCheckpoints(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreEvaluationsNewestFirst(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			defer func() { require.NoError(t, CloseIfSupported(store)) }()

			for _, purpose := range []string{"first", "second", "third"} {
				rec := model.NewEvaluationRecord("run-1", purpose, model.Attack, model.Tally{Games: 2, Wins: 1, Draws: 1}, model.Hyperparameters{Episodes: 10})
				require.NoError(t, store.AppendEvaluation(ctx, rec))
			}

			all, err := store.ListEvaluations(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "third", all[0].Purpose)
			assert.Equal(t, "first", all[2].Purpose)
			assert.Equal(t, CurrentSchemaVersion, all[0].SchemaVersion)
			assert.InDelta(t, 50.0, all[0].WinPct, 1e-9)

			limited, err := store.ListEvaluations(ctx, 2)
			require.NoError(t, err)
			require.Len(t, limited, 2)
			assert.Equal(t, "second", limited[1].Purpose)
		})
	}
}

func TestStoreGamesNewestFirst(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			defer func() { require.NoError(t, CloseIfSupported(store)) }()

			games, err := store.ListGames(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, games)

			for _, id := range []string{"g1", "g2"} {
				require.NoError(t, store.AppendGame(ctx, model.GameRecord{
					ID:       id,
					Strategy: model.Defence,
					Moves: []model.GameMove{
						{Mark: "X", Coord: board.Coord{Row: 0, Col: 0}, Board: "X--------"},
					},
					FinalBoard: "X--------",
					Result:     "ongoing",
				}))
			}

			games, err = store.ListGames(ctx, 1)
			require.NoError(t, err)
			require.Len(t, games, 1)
			assert.Equal(t, "g2", games[0].ID)
			assert.Equal(t, model.Defence, games[0].Strategy)
			require.Len(t, games[0].Moves, 1)
			assert.Equal(t, board.Coord{Row: 0, Col: 0}, games[0].Moves[0].Coord)
		})
	}
}

func TestMemoryStoreIsolatesSavedTable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := sampleTable(t)
	require.NoError(t, store.SaveTable(ctx, model.Attack, input))
	input.Set(board.Key("XXXXXXXXX"), qtable.Values{})

	output, ok, err := store.GetTable(ctx, model.Attack)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, output.Len())
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.EqualError(t, store.SaveTable(ctx, model.Attack, qtable.New()), "store is not initialized")
	_, _, err := store.GetTable(ctx, model.Attack)
	require.Error(t, err)
	require.Error(t, store.SaveCheckpoints(ctx, "run-1", nil))
	require.Error(t, store.AppendEvaluation(ctx, model.EvaluationRecord{}))
	_, err = store.ListGames(ctx, 0)
	require.Error(t, err)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "ttt.db"))
	_, _, err := store.GetTable(context.Background(), model.Attack)
	require.Error(t, err)
	require.EqualError(t, store.SaveTable(context.Background(), model.Attack, qtable.New()), "store is not initialized")
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ttt.db")

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveTable(ctx, model.Attack, sampleTable(t)))
	require.NoError(t, first.Close())

	second := NewSQLiteStore(path)
	require.NoError(t, second.Init(ctx))
	defer second.Close()

	output, ok, err := second.GetTable(ctx, model.Attack)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, sampleTable(t).Equal(output, 0))
}
