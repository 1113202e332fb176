// Package tictactoe is the public entry point: it trains the two value
// tables, serves moves from them and keeps the evaluation and game history.
package tictactoe

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/evaluate"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/policy"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
	"github.com/bartoszstec/tic-tac-toe/internal/stats"
	"github.com/bartoszstec/tic-tac-toe/internal/storage"
	"github.com/bartoszstec/tic-tac-toe/internal/train"
)

const (
	defaultModelsDir    = "models"
	defaultArtifactsDir = "runs"
	defaultDBPath       = "tictactoe.db"
	defaultEvalGames    = 1000
	defaultListLimit    = 20

	PurposeTraining = "training"
	PurposeManual   = "evaluation"
)

type Options struct {
	StoreKind string
	// ModelsDir is the file store directory; DBPath is the sqlite database.
	ModelsDir    string
	DBPath       string
	ArtifactsDir string
	// Seed drives move selection. Zero picks a time-based seed.
	Seed uint64
}

type Client struct {
	store        storage.Store
	storeKind    string
	location     string
	artifactsDir string

	mu          sync.Mutex
	rng         *rand.Rand
	initialized bool
	tables      [2]*qtable.Table
	loaded      [2]bool
}

type TrainRequest struct {
	Config train.Config
	// Continue starts from the stored tables instead of empty ones.
	Continue bool
}

type TrainSummary struct {
	RunID         string
	ArtifactsDir  string
	Episodes      int
	XWins         int
	OWins         int
	Draws         int
	Checkpoints   []model.Checkpoint
	AttackStates  int
	DefenceStates int
	Duration      time.Duration
}

type MoveRequest struct {
	Strategy string
	Board    board.Board
}

type MoveResponse struct {
	Role  model.Role
	Coord board.Coord
	// Found is false when the board is already full or decided.
	Found bool
	// ModelLoaded is false when no table exists for the role and the move
	// was chosen uniformly at random.
	ModelLoaded bool
}

type EvaluateRequest struct {
	Games   int
	Seed    uint64
	Purpose string
	// RunID tags the records and selects the hyperparameters echoed into
	// them. Empty uses the most recent run.
	RunID string
}

type GameRequest struct {
	Strategy string
	Moves    []board.Coord
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	location := opts.ModelsDir
	if location == "" {
		location = defaultModelsDir
	}
	if storeKind == storage.KindSQLite {
		location = opts.DBPath
		if location == "" {
			location = defaultDBPath
		}
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	store, err := storage.NewStore(storeKind, location)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		storeKind:    storeKind,
		location:     location,
		artifactsDir: artifactsDir,
		rng:          train.NewRand(seed),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init opens the store and loads both tables once. Later calls are no-ops.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked(ctx)
}

func (c *Client) initLocked(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	for _, role := range model.Roles {
		table, ok, err := c.store.GetTable(ctx, role)
		if err != nil {
			return errors.Wrapf(err, "load %s table", role)
		}
		if !ok {
			klog.Warningf("no %s model in %s store %q; moves for it will be random", role, c.storeKind, c.location)
			c.tables[role] = qtable.New()
			continue
		}
		klog.V(1).Infof("loaded %s model: %d states", role, table.Len())
		c.tables[role], c.loaded[role] = table, true
	}
	c.initialized = true
	return nil
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	cfg := req.Config
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	trainer, err := train.NewTrainer(cfg)
	if err != nil {
		return TrainSummary{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return TrainSummary{}, err
	}
	if req.Continue {
		trainer.UseTables(c.tables[model.Attack].Clone(), c.tables[model.Defence].Clone())
	}
	if err := ctx.Err(); err != nil {
		return TrainSummary{}, err
	}

	result, err := trainer.Run()
	if err != nil {
		return TrainSummary{}, err
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)

	for _, role := range model.Roles {
		if err := c.store.SaveTable(ctx, role, trainer.Table(role)); err != nil {
			return TrainSummary{}, errors.Wrapf(err, "save %s table", role)
		}
		c.tables[role], c.loaded[role] = trainer.Table(role).Clone(), true
	}
	if err := c.store.SaveCheckpoints(ctx, cfg.RunID, result.Checkpoints); err != nil {
		return TrainSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         cfg.RunID,
			Training:      cfg,
			StoreKind:     c.storeKind,
			StoreLocation: c.location,
			CreatedAtUTC:  createdAt,
		},
		Checkpoints: result.Checkpoints,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	entry := stats.RunIndexEntry{
		RunID:         cfg.RunID,
		Episodes:      result.Episodes,
		Seed:          cfg.Seed,
		LearningRate:  cfg.LearningRate,
		Discount:      cfg.Discount,
		XWins:         result.XWins,
		OWins:         result.OWins,
		Draws:         result.Draws,
		AttackStates:  trainer.Table(model.Attack).Len(),
		DefenceStates: trainer.Table(model.Defence).Len(),
		DurationMS:    result.Duration.Milliseconds(),
		CreatedAtUTC:  createdAt,
	}
	if n := len(result.Checkpoints); n > 0 {
		final := result.Checkpoints[n-1]
		entry.AttackWinRate = final.Attack.WinRate()
		entry.DefenceHoldRate = 1 - final.Defence.LossRate()
		for _, role := range model.Roles {
			rec := model.NewEvaluationRecord(cfg.RunID, PurposeTraining, role, final.Tally(role), cfg.Hyperparameters())
			rec.CreatedAtUTC = createdAt
			if err := c.appendEvaluation(ctx, rec); err != nil {
				return TrainSummary{}, err
			}
		}
	}
	if err := stats.AppendRunIndex(c.artifactsDir, entry); err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:         cfg.RunID,
		ArtifactsDir:  filepath.Clean(runDir),
		Episodes:      result.Episodes,
		XWins:         result.XWins,
		OWins:         result.OWins,
		Draws:         result.Draws,
		Checkpoints:   result.Checkpoints,
		AttackStates:  entry.AttackStates,
		DefenceStates: entry.DefenceStates,
		Duration:      result.Duration,
	}, nil
}

// Move picks the greedy move for the strategy's role on req.Board.
func (c *Client) Move(ctx context.Context, req MoveRequest) (MoveResponse, error) {
	role, err := model.ParseRole(req.Strategy)
	if err != nil {
		return MoveResponse{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return MoveResponse{}, err
	}

	resp := MoveResponse{Role: role, ModelLoaded: c.loaded[role]}
	if req.Board.Terminal().Terminal {
		return resp, nil
	}
	coord, err := policy.Greedy(c.rng, req.Board, c.tables[role])
	if err != nil {
		if errors.Is(err, policy.ErrNoMovesAvailable) {
			return resp, nil
		}
		return MoveResponse{}, err
	}
	klog.V(1).Infof("move strategy=%s board=%s -> %s", role, req.Board, coord)
	resp.Coord, resp.Found = coord, true
	return resp, nil
}

// Table returns a copy of the loaded table for role and whether one was found
// in the store.
func (c *Client) Table(ctx context.Context, role model.Role) (*qtable.Table, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return nil, false, err
	}
	return c.tables[role].Clone(), c.loaded[role], nil
}

// Evaluate plays each role's table against a random opponent and appends one
// record per role to the evaluation history.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) ([]model.EvaluationRecord, error) {
	if req.Games <= 0 {
		req.Games = defaultEvalGames
	}
	if req.Seed == 0 {
		req.Seed = train.DefaultConfig().EvalSeed
	}
	if req.Purpose == "" {
		req.Purpose = PurposeManual
	}

	hp, runID, err := c.hyperparameters(req.RunID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return nil, err
	}

	rng := train.NewRand(req.Seed)
	createdAt := time.Now().UTC().Format(time.RFC3339)
	records := make([]model.EvaluationRecord, 0, len(model.Roles))
	for _, role := range model.Roles {
		if !c.loaded[role] {
			klog.Warningf("evaluating %s without a trained model", role)
		}
		tally, err := evaluate.Simulate(rng, role, c.tables[role], req.Games)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluate %s", role)
		}
		rec := model.NewEvaluationRecord(runID, req.Purpose, role, tally, hp)
		rec.CreatedAtUTC = createdAt
		if err := c.appendEvaluation(ctx, rec); err != nil {
			return nil, err
		}
		klog.Infof("evaluation %s: win=%.1f%% draw=%.1f%% loss=%.1f%% over %d games",
			role, rec.WinPct, rec.DrawPct, rec.LossPct, tally.Games)
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) hyperparameters(runID string) (model.Hyperparameters, string, error) {
	if runID == "" {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return model.Hyperparameters{}, "", err
		}
		if len(entries) == 0 {
			return model.Hyperparameters{}, "", nil
		}
		runID = entries[0].RunID
	}
	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return model.Hyperparameters{}, "", err
	}
	if !ok {
		return model.Hyperparameters{}, "", errors.Errorf("run %s not found", runID)
	}
	return cfg.Training.Hyperparameters(), runID, nil
}

func (c *Client) appendEvaluation(ctx context.Context, rec model.EvaluationRecord) error {
	if err := c.store.AppendEvaluation(ctx, rec); err != nil {
		return err
	}
	return stats.AppendEvaluationLog(c.artifactsDir, rec)
}

func (c *Client) Runs(_ context.Context, limit int) ([]stats.RunIndexEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (c *Client) Evaluations(ctx context.Context, limit int) ([]model.EvaluationRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListEvaluations(ctx, limit)
}

// RecordGame replays moves from an empty board, X first, and stores the game.
// An illegal move or a move after the game ended rejects the whole record.
func (c *Client) RecordGame(ctx context.Context, req GameRequest) (model.GameRecord, error) {
	role, err := model.ParseRole(req.Strategy)
	if err != nil {
		return model.GameRecord{}, err
	}

	rec := model.GameRecord{
		ID:           uuid.NewString(),
		Strategy:     role,
		Moves:        make([]model.GameMove, 0, len(req.Moves)),
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
	}
	var b board.Board
	mark := board.X
	for i, coord := range req.Moves {
		if b.Terminal().Terminal {
			return model.GameRecord{}, errors.Wrapf(board.ErrIllegalMove, "move %d %s after the game ended", i+1, coord)
		}
		b, err = b.Apply(coord, mark)
		if err != nil {
			return model.GameRecord{}, errors.Wrapf(err, "move %d", i+1)
		}
		rec.Moves = append(rec.Moves, model.GameMove{Mark: mark.String(), Coord: coord, Board: b.String()})
		mark = mark.Opponent()
	}
	rec.FinalBoard = b.String()
	rec.Result = ResultLabel(b.Terminal())

	if err := c.Init(ctx); err != nil {
		return model.GameRecord{}, err
	}
	if err := c.store.AppendGame(ctx, rec); err != nil {
		return model.GameRecord{}, err
	}
	return rec, nil
}

func (c *Client) Games(ctx context.Context, limit int) ([]model.GameRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListGames(ctx, limit)
}

// ResultLabel names a game result the way it is stored in game records.
func ResultLabel(res board.Result) string {
	switch {
	case !res.Terminal:
		return "unfinished"
	case res.Outcome == board.OutcomeDraw:
		return "draw"
	default:
		return res.Outcome.String() + " wins"
	}
}
