package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/train"
)

const (
	runIndexFile        = "run_index.json"
	configFile          = "config.json"
	checkpointsJSONFile = "checkpoints.json"
	checkpointsCSVFile  = "checkpoints.csv"
	checkpointsPlotFile = "checkpoints.html"
)

// RunConfig is what a training run was started with.
type RunConfig struct {
	RunID         string       `json:"run_id"`
	Training      train.Config `json:"training"`
	StoreKind     string       `json:"store_kind"`
	StoreLocation string       `json:"store_location,omitempty"`
	CreatedAtUTC  string       `json:"created_at_utc"`
}

type RunArtifacts struct {
	Config      RunConfig          `json:"config"`
	Checkpoints []model.Checkpoint `json:"checkpoints"`
}

type RunIndexEntry struct {
	RunID           string  `json:"run_id"`
	Episodes        int     `json:"episodes"`
	Seed            uint64  `json:"seed"`
	LearningRate    float64 `json:"learning_rate"`
	Discount        float64 `json:"discount_factor"`
	XWins           int     `json:"x_wins"`
	OWins           int     `json:"o_wins"`
	Draws           int     `json:"draws"`
	AttackWinRate   float64 `json:"attack_win_rate"`
	DefenceHoldRate float64 `json:"defence_hold_rate"`
	AttackStates    int     `json:"attack_states"`
	DefenceStates   int     `json:"defence_states"`
	DurationMS      int64   `json:"duration_ms"`
	CreatedAtUTC    string  `json:"created_at_utc"`
}

// WriteRunArtifacts lays out <baseDir>/<run-id>/ and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if err := model.ValidateRunID(artifacts.Config.RunID); err != nil {
		return "", err
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, checkpointsJSONFile), artifacts.Checkpoints); err != nil {
		return "", err
	}
	if err := WriteCheckpointSeries(filepath.Join(runDir, checkpointsCSVFile), artifacts.Checkpoints); err != nil {
		return "", err
	}
	if err := RenderCheckpointPlot(filepath.Join(runDir, checkpointsPlotFile), artifacts.Config.RunID, artifacts.Checkpoints); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	if err := model.ValidateRunID(runID); err != nil {
		return cfg, false, err
	}
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadRunCheckpoints(baseDir, runID string) ([]model.Checkpoint, bool, error) {
	if err := model.ValidateRunID(runID); err != nil {
		return nil, false, err
	}
	var checkpoints []model.Checkpoint
	ok, err := readJSON(filepath.Join(baseDir, runID, checkpointsJSONFile), &checkpoints)
	return checkpoints, ok, err
}

// AppendRunIndex adds entry to the index, replacing an entry with the same
// run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if err := model.ValidateRunID(entry.RunID); err != nil {
		return err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first. Entries with equal timestamps
// keep the later-appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if a.CreatedAtUTC == b.CreatedAtUTC {
			return order[i] > order[j]
		}
		return a.CreatedAtUTC > b.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(entries))
	for _, i := range order {
		sorted = append(sorted, entries[i])
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries := []RunIndexEntry{}
	if _, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", filepath.Base(path))
	}
	data = append(data, '\n')
	return errors.WithStack(os.WriteFile(path, data, 0o644))
}

// readJSON reports false with a nil error when path does not exist.
func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "decode %s", path)
	}
	return true, nil
}
