package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/logrusorgru/aurora"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

type renderer struct {
	au aurora.Aurora
}

func newRenderer(colour bool) renderer {
	return renderer{au: aurora.NewAurora(colour)}
}

// board draws b as a grid with row and column numbers. Cells of a winning
// line are highlighted.
func (r renderer) board(b board.Board) string {
	res := b.Terminal()
	onLine := make(map[board.Coord]bool, board.Size)
	if res.HasLine {
		for _, c := range res.Line {
			onLine[c] = true
		}
	}

	var sb strings.Builder
	sb.WriteString("    0   1   2\n")
	for row := 0; row < board.Size; row++ {
		if row > 0 {
			sb.WriteString("   ---+---+---\n")
		}
		fmt.Fprintf(&sb, "%d ", row)
		for col := 0; col < board.Size; col++ {
			if col > 0 {
				sb.WriteString("|")
			}
			c := board.Coord{Row: row, Col: col}
			sb.WriteString(r.cell(b.At(c), onLine[c]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r renderer) cell(m board.Mark, highlight bool) string {
	text := fmt.Sprintf(" %s ", m)
	switch {
	case highlight:
		return r.au.Bold(r.au.Yellow(text)).String()
	case m == board.X:
		return r.au.Green(text).String()
	case m == board.O:
		return r.au.Blue(text).String()
	default:
		return r.au.Faint(text).String()
	}
}

// values draws the action values of one state as a heat map. Occupied cells
// are shown as their mark since they are never chosen.
func (r renderer) values(b board.Board, v qtable.Values) string {
	empty := b.EmptyCells()
	best := math.Inf(-1)
	for _, c := range empty {
		best = math.Max(best, v.At(c))
	}

	var sb strings.Builder
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			if col > 0 {
				sb.WriteString(" ")
			}
			c := board.Coord{Row: row, Col: col}
			if m := b.At(c); m != board.Empty {
				sb.WriteString(r.au.Faint(fmt.Sprintf("%8s", m)).String())
				continue
			}
			text := fmt.Sprintf("%8.4f", v.At(c))
			switch q := v.At(c); {
			case q == best:
				sb.WriteString(r.au.Bold(r.au.Green(text)).String())
			case q > 0:
				sb.WriteString(r.au.Green(text).String())
			case q < 0:
				sb.WriteString(r.au.Red(text).String())
			default:
				sb.WriteString(text)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
