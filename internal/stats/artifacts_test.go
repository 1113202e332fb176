package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/train"
)

func sampleCheckpoints() []model.Checkpoint {
	return []model.Checkpoint{
		{Episode: 50, Epsilon: 0.6, Attack: newTally(5, 2, 3), Defence: newTally(1, 4, 5)},
		{Episode: 100, Epsilon: 0.37, Attack: newTally(7, 2, 1), Defence: newTally(3, 5, 2)},
	}
}

func TestWriteRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	cfg := train.DefaultConfig()
	cfg.Episodes = 100

	runDir, err := WriteRunArtifacts(baseDir, RunArtifacts{
		Config:      RunConfig{RunID: "run-1", Training: cfg, StoreKind: "memory"},
		Checkpoints: sampleCheckpoints(),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "run-1"), runDir)

	for _, name := range []string{configFile, checkpointsJSONFile, checkpointsCSVFile, checkpointsPlotFile} {
		_, err := os.Stat(filepath.Join(runDir, name))
		require.NoError(t, err, name)
	}

	readCfg, ok, err := ReadRunConfig(baseDir, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100, readCfg.Training.Episodes)
	assert.Equal(t, cfg.Rewards, readCfg.Training.Rewards)

	checkpoints, ok, err := ReadRunCheckpoints(baseDir, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleCheckpoints(), checkpoints)

	html, err := os.ReadFile(filepath.Join(runDir, checkpointsPlotFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), "attack vs random")
	assert.Contains(t, string(html), "defence vs random")
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	require.Error(t, err)
}

func TestRunArtifactsRejectEscapingRunID(t *testing.T) {
	root := t.TempDir()
	baseDir := filepath.Join(root, "runs")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))

	for _, id := range []string{"../escape", "a/b", ".."} {
		_, err := WriteRunArtifacts(baseDir, RunArtifacts{Config: RunConfig{RunID: id}})
		assert.ErrorIs(t, err, model.ErrInvalidRunID, id)

		_, _, err = ReadRunConfig(baseDir, id)
		assert.ErrorIs(t, err, model.ErrInvalidRunID, id)

		_, _, err = ReadRunCheckpoints(baseDir, id)
		assert.ErrorIs(t, err, model.ErrInvalidRunID, id)

		assert.ErrorIs(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: id}), model.ErrInvalidRunID, id)
	}

	_, err := os.Stat(filepath.Join(root, "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadRunConfigMissing(t *testing.T) {
	_, ok, err := ReadRunConfig(t.TempDir(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunIndexNewestFirst(t *testing.T) {
	baseDir := t.TempDir()

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", CreatedAtUTC: "2024-01-01T00:00:00Z"}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "b", CreatedAtUTC: "2024-01-02T00:00:00Z"}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "c", CreatedAtUTC: "2024-01-02T00:00:00Z"}))
	require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", Episodes: 9, CreatedAtUTC: "2024-01-01T00:00:00Z"}))

	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{entries[0].RunID, entries[1].RunID, entries[2].RunID})
	assert.Equal(t, 9, entries[2].Episodes)
}

func TestRunIndexRequiresRunID(t *testing.T) {
	require.Error(t, AppendRunIndex(t.TempDir(), RunIndexEntry{}))
}

func TestCheckpointSeriesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), checkpointsCSVFile)
	require.NoError(t, WriteCheckpointSeries(path, sampleCheckpoints()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(seriesHeader, ",")+"\n"))

	checkpoints, ok, err := ReadCheckpointSeries(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleCheckpoints(), checkpoints)
}

func TestReadCheckpointSeriesErrors(t *testing.T) {
	dir := t.TempDir()

	_, ok, err := ReadCheckpointSeries(filepath.Join(dir, "missing.csv"))
	require.NoError(t, err)
	assert.False(t, ok)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(strings.Join(seriesHeader, ",")+"\n1,x,0,0,0,0,0,0\n"), 0o644))
	_, _, err = ReadCheckpointSeries(bad)
	require.Error(t, err)
}

func TestRatesFor(t *testing.T) {
	rates := RatesFor(sampleCheckpoints(), model.Attack)
	assert.InDeltaSlice(t, []float64{50, 70}, rates.Win, 1e-9)
	assert.InDeltaSlice(t, []float64{20, 20}, rates.Draw, 1e-9)
	assert.InDeltaSlice(t, []float64{30, 10}, rates.Loss, 1e-9)
	assert.InDelta(t, 60.0, MeanRate(rates.Win), 1e-9)
	assert.Zero(t, MeanRate(nil))
}

func TestEvaluationLogAppendOnly(t *testing.T) {
	dir := t.TempDir()

	records, err := ReadEvaluationLog(dir)
	require.NoError(t, err)
	assert.Empty(t, records)

	first := model.NewEvaluationRecord("run-1", "baseline", model.Attack, newTally(3, 1, 0), model.Hyperparameters{Episodes: 10})
	second := model.NewEvaluationRecord("run-1", "baseline", model.Defence, newTally(0, 2, 2), model.Hyperparameters{Episodes: 10})
	require.NoError(t, AppendEvaluationLog(dir, first))
	require.NoError(t, AppendEvaluationLog(dir, second))

	records, err = ReadEvaluationLog(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.Attack, records[0].Role)
	assert.Equal(t, model.Defence, records[1].Role)
	assert.InDelta(t, 75.0, records[0].WinPct, 1e-9)
}
