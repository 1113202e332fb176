package board

type Outcome int8

const (
	OutcomeNone Outcome = iota
	OutcomeX
	OutcomeO
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeX:
		return "X"
	case OutcomeO:
		return "O"
	case OutcomeDraw:
		return "draw"
	default:
		return "none"
	}
}

// Winner returns the winning mark, Empty for draws and unfinished games.
func (o Outcome) Winner() Mark {
	switch o {
	case OutcomeX:
		return X
	case OutcomeO:
		return O
	default:
		return Empty
	}
}

func outcomeFor(m Mark) Outcome {
	if m == X {
		return OutcomeX
	}
	return OutcomeO
}

type Line [Size]Coord

// Lines holds the eight winning lines in check order: rows, columns, main
// diagonal, anti-diagonal.
var Lines = [8]Line{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

type Result struct {
	Terminal bool
	Outcome  Outcome
	// Line is set only for wins.
	Line    Line
	HasLine bool
}

// WinningLine returns the first complete line of identical non-empty marks.
func (b Board) WinningLine() (Line, Mark, bool) {
	for _, line := range Lines {
		first := b.At(line[0])
		if first == Empty {
			continue
		}
		if b.At(line[1]) == first && b.At(line[2]) == first {
			return line, first, true
		}
	}
	return Line{}, Empty, false
}

// Terminal reports whether the game on b is over and how it ended.
func (b Board) Terminal() Result {
	if line, mark, ok := b.WinningLine(); ok {
		return Result{Terminal: true, Outcome: outcomeFor(mark), Line: line, HasLine: true}
	}
	if b.Full() {
		return Result{Terminal: true, Outcome: OutcomeDraw}
	}
	return Result{}
}
