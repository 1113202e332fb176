package model

import "github.com/bartoszstec/tic-tac-toe/internal/board"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Hyperparameters are the training settings echoed into every evaluation
// record so results can be compared across runs.
type Hyperparameters struct {
	LearningRate float64 `json:"learning_rate"`
	Discount     float64 `json:"discount_factor"`
	EpsilonMax   float64 `json:"epsilon_max"`
	EpsilonMin   float64 `json:"epsilon_min"`
	DecayRate    float64 `json:"decay_rate"`
	Episodes     int     `json:"episodes"`
}

// Tally counts game results from one role's point of view.
type Tally struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

// Record adds one finished game seen by the player of mark.
func (t *Tally) Record(outcome board.Outcome, mark board.Mark) {
	t.Games++
	switch {
	case outcome == board.OutcomeDraw:
		t.Draws++
	case outcome.Winner() == mark:
		t.Wins++
	default:
		t.Losses++
	}
}

func (t Tally) WinRate() float64  { return ratio(t.Wins, t.Games) }
func (t Tally) DrawRate() float64 { return ratio(t.Draws, t.Games) }
func (t Tally) LossRate() float64 { return ratio(t.Losses, t.Games) }

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Checkpoint is a periodic evaluation snapshot taken during training.
type Checkpoint struct {
	Episode int     `json:"episode"`
	Epsilon float64 `json:"epsilon"`
	Attack  Tally   `json:"attack"`
	Defence Tally   `json:"defence"`
}

// Tally returns the snapshot for r.
func (c Checkpoint) Tally(r Role) Tally {
	if r == Defence {
		return c.Defence
	}
	return c.Attack
}

// EvaluationRecord is one entry of the append-only evaluation report.
type EvaluationRecord struct {
	VersionedRecord
	RunID           string          `json:"run_id,omitempty"`
	Purpose         string          `json:"purpose"`
	Role            Role            `json:"role"`
	Wins            int             `json:"wins"`
	Draws           int             `json:"draws"`
	Losses          int             `json:"losses"`
	WinPct          float64         `json:"win_pct"`
	DrawPct         float64         `json:"draw_pct"`
	LossPct         float64         `json:"loss_pct"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	CreatedAtUTC    string          `json:"created_at_utc"`
}

// NewEvaluationRecord derives the percentage columns from t.
func NewEvaluationRecord(runID, purpose string, role Role, t Tally, hp Hyperparameters) EvaluationRecord {
	return EvaluationRecord{
		RunID:           runID,
		Purpose:         purpose,
		Role:            role,
		Wins:            t.Wins,
		Draws:           t.Draws,
		Losses:          t.Losses,
		WinPct:          100 * t.WinRate(),
		DrawPct:         100 * t.DrawRate(),
		LossPct:         100 * t.LossRate(),
		Hyperparameters: hp,
	}
}

// GameMove is one entry of a played game's move log.
type GameMove struct {
	Mark  string      `json:"mark"`
	Coord board.Coord `json:"position"`
	Board string      `json:"board"`
}

// GameRecord is a finished game against the engine, kept for history.
type GameRecord struct {
	VersionedRecord
	ID           string     `json:"id"`
	Strategy     Role       `json:"strategy"`
	Moves        []GameMove `json:"moves"`
	FinalBoard   string     `json:"board"`
	Result       string     `json:"result"`
	CreatedAtUTC string     `json:"created_at_utc"`
}
