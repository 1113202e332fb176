// Package evaluate plays a value table against a uniform-random opponent.
package evaluate

import (
	"github.com/pkg/errors"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/policy"
)

// Player chooses a move for the side to play on b.
type Player func(b board.Board) (board.Coord, error)

// GreedyPlayer exploits t with exploration disabled.
func GreedyPlayer(rng policy.Rand, t policy.Table) Player {
	return func(b board.Board) (board.Coord, error) {
		return policy.Greedy(rng, b, t)
	}
}

// RandomPlayer picks uniformly among empty cells.
func RandomPlayer(rng policy.Rand) Player {
	return func(b board.Board) (board.Coord, error) {
		return policy.RandomAction(rng, b)
	}
}

// PlayGame plays one game from an empty board, X moving first, and returns
// the terminal result and final board.
func PlayGame(x, o Player) (board.Result, board.Board, error) {
	var b board.Board
	mover := board.X
	for {
		play := x
		if mover == board.O {
			play = o
		}
		c, err := play(b)
		if err != nil {
			return board.Result{}, b, errors.Wrapf(err, "%s to move on %s", mover, b)
		}
		b, err = b.Apply(c, mover)
		if err != nil {
			return board.Result{}, b, err
		}
		if res := b.Terminal(); res.Terminal {
			return res, b, nil
		}
		mover = mover.Opponent()
	}
}

// Simulate plays games independent games of role's table against a random
// opponent and tallies them from role's point of view.
func Simulate(rng policy.Rand, role model.Role, t policy.Table, games int) (model.Tally, error) {
	var tally model.Tally
	agent := GreedyPlayer(rng, t)
	opponent := RandomPlayer(rng)

	x, o := agent, opponent
	if role.Mark() == board.O {
		x, o = opponent, agent
	}
	for g := 0; g < games; g++ {
		res, _, err := PlayGame(x, o)
		if err != nil {
			return tally, errors.Wrapf(err, "simulate %s game %d", role, g)
		}
		tally.Record(res.Outcome, role.Mark())
	}
	return tally, nil
}
