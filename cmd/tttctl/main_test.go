package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
	"github.com/bartoszstec/tic-tac-toe/internal/stats"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func storeArgs(base string) []string {
	return []string{
		"--store", "file",
		"--models-dir", filepath.Join(base, "models"),
		"--artifacts-dir", filepath.Join(base, "runs"),
		"--move-seed", "3",
	}
}

func runCmd(t *testing.T, base string, args ...string) string {
	t.Helper()
	out := capture(t)
	full := append([]string{args[0]}, storeArgs(base)...)
	full = append(full, args[1:]...)
	require.NoError(t, run(context.Background(), full))
	return out.String()
}

func TestTrainThenQuery(t *testing.T) {
	base := t.TempDir()

	out := runCmd(t, base, "train", "--episodes", "300", "--decay", "0.01", "--checkpoints", "2", "--eval-games", "20", "--run-id", "cli-run")
	assert.Contains(t, out, "run_id=cli-run")
	assert.Contains(t, out, "checkpoint episode=150")
	assert.Contains(t, out, "checkpoint episode=300")

	entries, err := stats.ListRunIndex(filepath.Join(base, "runs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 300, entries[0].Episodes)

	out = runCmd(t, base, "runs")
	assert.Contains(t, out, "run_id=cli-run")

	out = runCmd(t, base, "move", "--strategy", "defence", "--board", "X--/---/---", "--json")
	var move struct {
		Strategy    string       `json:"strategy"`
		Position    *board.Coord `json:"position"`
		ModelLoaded bool         `json:"model_loaded"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &move))
	assert.Equal(t, "defence", move.Strategy)
	assert.True(t, move.ModelLoaded)
	require.NotNil(t, move.Position)
	assert.False(t, *move.Position == board.Coord{Row: 0, Col: 0})

	out = runCmd(t, base, "evaluate", "--games", "25", "--seed", "4")
	assert.Contains(t, out, "purpose=evaluation role=attack")
	assert.Contains(t, out, "purpose=evaluation role=defence")

	out = runCmd(t, base, "evaluations", "--json")
	var records []model.EvaluationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 4)

	out = runCmd(t, base, "show", "--board", "X--/-O-/---", "--color=false")
	assert.Contains(t, out, "attack values (model_loaded=true")
}

func TestMoveOnFinishedBoard(t *testing.T) {
	out := runCmd(t, t.TempDir(), "move", "--board", "XXX/OO-/---")
	assert.Equal(t, "no move available\n", out)
}

func TestMoveUnknownStrategy(t *testing.T) {
	base := t.TempDir()
	capture(t)
	args := append([]string{"move"}, storeArgs(base)...)
	args = append(args, "--strategy", "sideways")
	err := run(context.Background(), args)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnknownStrategy))
}

func TestShowHighlightsWinningLine(t *testing.T) {
	out := runCmd(t, t.TempDir(), "show", "--board", "XXX/OO-/---", "--color=false")
	assert.Contains(t, out, "result: X wins")
	assert.Contains(t, out, "0  X | X | X ")
}

func TestPlayRecordsGame(t *testing.T) {
	base := t.TempDir()
	orig := stdin
	var lines []string
	for _, c := range board.Actions {
		lines = append(lines, fmt.Sprintf("%d %d", c.Row, c.Col))
	}
	stdin = strings.NewReader(strings.Join(lines, "\n") + "\n")
	t.Cleanup(func() { stdin = orig })

	out := runCmd(t, base, "play", "--human", "x", "--color=false")
	assert.Contains(t, out, "engine (defence) plays")
	assert.Contains(t, out, "result: ")

	out = runCmd(t, base, "games")
	assert.Contains(t, out, "strategy=defence")
}

func TestPlayQuitImmediately(t *testing.T) {
	orig := stdin
	stdin = strings.NewReader("q\n")
	t.Cleanup(func() { stdin = orig })

	out := runCmd(t, t.TempDir(), "play", "--color=false")
	assert.Contains(t, out, "no moves played")
}

func TestParseCoord(t *testing.T) {
	c, err := parseCoord(" 2 1 ")
	require.NoError(t, err)
	assert.Equal(t, board.Coord{Row: 2, Col: 1}, c)

	c, err = parseCoord("0,2")
	require.NoError(t, err)
	assert.Equal(t, board.Coord{Row: 0, Col: 2}, c)

	for _, bad := range []string{"", "1", "a b", "3 0", "0 -1"} {
		_, err := parseCoord(bad)
		assert.Error(t, err, bad)
	}
}

func TestRendererValuesMarksBest(t *testing.T) {
	b, err := board.Parse("X--/---/---")
	require.NoError(t, err)
	out := newRenderer(false).values(b, qtable.Values{5, 0.5, -0.25})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "X")
	assert.Contains(t, lines[0], "0.5000")
	assert.Contains(t, lines[0], "-0.2500")
}

func TestUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"fly"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: fly")
	require.Error(t, run(context.Background(), nil))
}
