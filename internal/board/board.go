// Package board models the 3x3 tic-tac-toe grid: marks, coordinates, terminal
// detection and the immutable state key used by the value tables.
package board

import (
	"strings"

	"github.com/pkg/errors"
)

const Size = 3

var ErrIllegalMove = errors.New("illegal move")

type Mark int8

const (
	Empty Mark = iota
	X
	O
)

func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "-"
	}
}

// Opponent returns the other player's mark. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func ParseMark(s string) (Mark, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "O":
		return O, nil
	case "-", "", "_", ".":
		return Empty, nil
	default:
		return Empty, errors.Errorf("unknown mark %q", s)
	}
}

// Board is a value type; copying a Board copies the grid.
type Board [Size][Size]Mark

func (b Board) At(c Coord) Mark {
	return b[c.Row][c.Col]
}

// Apply returns a copy of b with c set to m. The receiver is never modified.
func (b Board) Apply(c Coord, m Mark) (Board, error) {
	if !c.Valid() {
		return b, errors.Wrapf(ErrIllegalMove, "coordinate %s out of range", c)
	}
	if m == Empty {
		return b, errors.Wrapf(ErrIllegalMove, "cannot place empty mark at %s", c)
	}
	if occupant := b[c.Row][c.Col]; occupant != Empty {
		return b, errors.Wrapf(ErrIllegalMove, "cell %s already holds %s", c, occupant)
	}
	b[c.Row][c.Col] = m
	return b, nil
}

// EmptyCells lists the empty coordinates in action-space order. A full board
// yields an empty, non-nil slice.
func (b Board) EmptyCells() []Coord {
	cells := make([]Coord, 0, len(Actions))
	for _, c := range Actions {
		if b[c.Row][c.Col] == Empty {
			cells = append(cells, c)
		}
	}
	return cells
}

func (b Board) Full() bool {
	for _, c := range Actions {
		if b[c.Row][c.Col] == Empty {
			return false
		}
	}
	return true
}

// Count returns how many cells hold m.
func (b Board) Count(m Mark) int {
	n := 0
	for _, c := range Actions {
		if b[c.Row][c.Col] == m {
			n++
		}
	}
	return n
}

// ToMove infers whose turn it is from the mark counts, X moving first.
func (b Board) ToMove() Mark {
	if b.Count(X) > b.Count(O) {
		return O
	}
	return X
}

func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c := 0; c < Size; c++ {
			sb.WriteString(b[r][c].String())
		}
	}
	return sb.String()
}

// Parse reads a board from its state key or from the slash separated form
// produced by String, e.g. "XXX/-O-/O--".
func Parse(s string) (Board, error) {
	key, err := ParseKey(strings.ReplaceAll(strings.TrimSpace(s), "/", ""))
	if err != nil {
		return Board{}, err
	}
	return key.Board(), nil
}

// FromRows builds a board from nested string cells as a delivery layer
// typically sends them ("X", "O", "" or "-" for empty).
func FromRows(rows [][]string) (Board, error) {
	var b Board
	if len(rows) != Size {
		return b, errors.Errorf("board must have %d rows, got %d", Size, len(rows))
	}
	for r, row := range rows {
		if len(row) != Size {
			return b, errors.Errorf("row %d must have %d cells, got %d", r, Size, len(row))
		}
		for c, cell := range row {
			m, err := ParseMark(cell)
			if err != nil {
				return b, errors.Wrapf(err, "cell (%d,%d)", r, c)
			}
			b[r][c] = m
		}
	}
	return b, nil
}
