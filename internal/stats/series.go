package stats

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/bartoszstec/tic-tac-toe/internal/model"
)

var seriesHeader = []string{
	"episode", "epsilon",
	"attack_wins", "attack_draws", "attack_losses",
	"defence_wins", "defence_draws", "defence_losses",
}

// WriteCheckpointSeries writes one CSV row per checkpoint.
func WriteCheckpointSeries(path string, checkpoints []model.Checkpoint) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(seriesHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, cp := range checkpoints {
		if err := writer.Write([]string{
			strconv.Itoa(cp.Episode),
			strconv.FormatFloat(cp.Epsilon, 'f', -1, 64),
			strconv.Itoa(cp.Attack.Wins),
			strconv.Itoa(cp.Attack.Draws),
			strconv.Itoa(cp.Attack.Losses),
			strconv.Itoa(cp.Defence.Wins),
			strconv.Itoa(cp.Defence.Draws),
			strconv.Itoa(cp.Defence.Losses),
		}); err != nil {
			return errors.WithStack(err)
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}

func ReadCheckpointSeries(path string) ([]model.Checkpoint, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.WithStack(err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.Checkpoint{}, true, nil
		}
		return nil, false, errors.WithStack(err)
	}
	if len(header) != len(seriesHeader) {
		return nil, false, errors.Errorf("checkpoint series header must have %d columns, got %d", len(seriesHeader), len(header))
	}

	var checkpoints []model.Checkpoint
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, errors.WithStack(err)
		}
		cp, err := parseSeriesRow(record)
		if err != nil {
			return nil, false, errors.Wrapf(err, "checkpoint series line %d", line)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, true, nil
}

func parseSeriesRow(record []string) (model.Checkpoint, error) {
	var cp model.Checkpoint
	epsilon, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return cp, err
	}
	ints := make([]int, 0, len(record))
	for _, field := range append([]string{record[0]}, record[2:]...) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return cp, err
		}
		ints = append(ints, n)
	}
	cp.Episode = ints[0]
	cp.Epsilon = epsilon
	cp.Attack = newTally(ints[1], ints[2], ints[3])
	cp.Defence = newTally(ints[4], ints[5], ints[6])
	return cp, nil
}

func newTally(wins, draws, losses int) model.Tally {
	return model.Tally{Games: wins + draws + losses, Wins: wins, Draws: draws, Losses: losses}
}

// Rates is a role's win/draw/loss percentages at each checkpoint.
type Rates struct {
	Win  []float64
	Draw []float64
	Loss []float64
}

func RatesFor(checkpoints []model.Checkpoint, role model.Role) Rates {
	r := Rates{
		Win:  make([]float64, len(checkpoints)),
		Draw: make([]float64, len(checkpoints)),
		Loss: make([]float64, len(checkpoints)),
	}
	for i, cp := range checkpoints {
		t := cp.Tally(role)
		r.Win[i] = 100 * t.WinRate()
		r.Draw[i] = 100 * t.DrawRate()
		r.Loss[i] = 100 * t.LossRate()
	}
	return r
}

// MeanRate averages a percentage series; an empty series averages to zero.
func MeanRate(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return floats.Sum(series) / float64(len(series))
}
