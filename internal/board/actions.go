package board

import "fmt"

// Coord addresses one cell; it doubles as the action of marking that cell.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) Valid() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Actions is the fixed row-major action space. Value vectors are laid out in
// this order, so it must not change while persisted tables exist.
var Actions = [Size * Size]Coord{
	{0, 0}, {0, 1}, {0, 2},
	{1, 0}, {1, 1}, {1, 2},
	{2, 0}, {2, 1}, {2, 2},
}

var actionIndex = func() map[Coord]int {
	idx := make(map[Coord]int, len(Actions))
	for i, c := range Actions {
		idx[c] = i
	}
	return idx
}()

// ActionIndex returns the ordinal of c in Actions, or -1 when c is off the board.
func ActionIndex(c Coord) int {
	i, ok := actionIndex[c]
	if !ok {
		return -1
	}
	return i
}

// ActionAt is the inverse of ActionIndex.
func ActionAt(i int) (Coord, bool) {
	if i < 0 || i >= len(Actions) {
		return Coord{}, false
	}
	return Actions[i], true
}
