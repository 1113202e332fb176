// Package policy chooses moves from a value table with epsilon-greedy
// exploration and uniform tie-breaking.
package policy

import (
	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

var ErrNoMovesAvailable = errors.New("no moves available")

// Rand is the subset of *rand.Rand (math/rand/v2) the policy draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Table is the read side of a value table.
type Table interface {
	Lookup(k board.Key) (qtable.Values, bool)
}

// SelectAction picks a move on b. One uniform sample decides between
// exploration (sample < epsilon) and exploitation. States missing from t are
// always explored, so a legal move is produced even for an untrained table.
func SelectAction(rng Rand, b board.Board, t Table, epsilon float64) (board.Coord, error) {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return board.Coord{}, ErrNoMovesAvailable
	}

	explore := rng.Float64() < epsilon
	var (
		values qtable.Values
		seen   bool
	)
	if t != nil {
		values, seen = t.Lookup(b.Key())
	}
	if explore || !seen {
		return empty[rng.IntN(len(empty))], nil
	}
	return pickBest(rng, empty, values), nil
}

// Greedy is SelectAction with exploration disabled, as used for inference.
func Greedy(rng Rand, b board.Board, t Table) (board.Coord, error) {
	return SelectAction(rng, b, t, 0)
}

// RandomAction picks uniformly among the empty cells of b.
func RandomAction(rng Rand, b board.Board) (board.Coord, error) {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return board.Coord{}, ErrNoMovesAvailable
	}
	return empty[rng.IntN(len(empty))], nil
}

// BestActions returns every empty cell whose value equals the maximum over
// empty cells, in action-space order.
func BestActions(empty []board.Coord, values qtable.Values) []board.Coord {
	if len(empty) == 0 {
		return nil
	}
	best := values.At(empty[0])
	for _, c := range empty[1:] {
		if v := values.At(c); v > best {
			best = v
		}
	}
	ties := make([]board.Coord, 0, len(empty))
	for _, c := range empty {
		if values.At(c) == best {
			ties = append(ties, c)
		}
	}
	return ties
}

func pickBest(rng Rand, empty []board.Coord, values qtable.Values) board.Coord {
	ties := BestActions(empty, values)
	if len(ties) == 1 {
		return ties[0]
	}
	return ties[rng.IntN(len(ties))]
}
