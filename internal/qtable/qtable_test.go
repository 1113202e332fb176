package qtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
)

func TestLookupDoesNotMaterialise(t *testing.T) {
	table := New()
	k := board.Board{}.Key()

	_, ok := table.Lookup(k)
	assert.False(t, ok)
	assert.Zero(t, table.Value(k, board.Coord{Row: 1, Col: 1}))
	assert.Zero(t, table.MaxValue(k))
	assert.Zero(t, table.Len())
}

func TestUpdateFromEmpty(t *testing.T) {
	table := New()
	tr := Transition{State: "---------", Action: board.Coord{Row: 1, Col: 1}, Next: "----X----"}

	got := table.Update(tr, 1, 0.5, 0.9)

	assert.InDelta(t, 0.5, got, 1e-12)
	assert.Equal(t, 1, table.Len())
	v, ok := table.Lookup(tr.State)
	require.True(t, ok)
	assert.InDelta(t, 0.5, v[4], 1e-12)
	for i, x := range v {
		if i != 4 {
			assert.Zero(t, x)
		}
	}
	assert.False(t, table.Has(tr.Next))
}

func TestOffBoardActionPanics(t *testing.T) {
	table := New()
	for _, c := range []board.Coord{{Row: 3, Col: 0}, {Row: 0, Col: -1}, {Row: -1, Col: 2}} {
		tr := Transition{State: "---------", Action: c, Next: "X--------"}
		assert.Panics(t, func() { table.Update(tr, 1, 0.5, 0.9) }, "%v", c)
		assert.Panics(t, func() { Values{}.At(c) }, "%v", c)
		assert.Panics(t, func() { table.Value("---------", c) }, "%v", c)
	}
	assert.Zero(t, table.Len())
}

func TestUpdateBootstrapsFromNextState(t *testing.T) {
	table := New()
	next := board.Key("X---O----")
	table.Set(next, Values{0.2, 0, 0.8, 0, 0, 0, -1, 0, 0})
	table.Set("X--------", Values{0, 0, 0, 0, 0.4, 0, 0, 0, 0})

	tr := Transition{State: "X--------", Action: board.Coord{Row: 1, Col: 1}, Next: next}
	got := table.Update(tr, -0.1, 0.1, 0.9)

	// 0.4 + 0.1*(-0.1 + 0.9*0.8 - 0.4)
	assert.InDelta(t, 0.4+0.1*(-0.1+0.72-0.4), got, 1e-12)
}

func TestUpdateConvergesToTerminalReward(t *testing.T) {
	table := New()
	tr := Transition{State: "XX-OO----", Action: board.Coord{Row: 0, Col: 2}, Next: "XXXOO----"}
	for i := 0; i < 500; i++ {
		table.Update(tr, 1, 0.1, 0.9)
	}
	assert.InDelta(t, 1, table.Value(tr.State, tr.Action), 1e-6)
}

func TestKeysSortedAndEqual(t *testing.T) {
	a := New()
	a.Set("X--------", Values{1})
	a.Set("---------", Values{0, 2})

	assert.Equal(t, []board.Key{"---------", "X--------"}, a.Keys())

	b := a.Clone()
	assert.True(t, a.Equal(b, 1e-9))

	b.Set("X--------", Values{1 + 1e-12})
	assert.True(t, a.Equal(b, 1e-9))

	b.Set("X--------", Values{1.5})
	assert.False(t, a.Equal(b, 1e-9))

	b.Set("-X-------", Values{})
	assert.False(t, a.Equal(b, 1e-9))
}

func TestValuesMatrix(t *testing.T) {
	v := Values{1, 2, 3, 4, 5, 6, 7, 8, 9}
	m := v.Matrix()
	assert.Equal(t, 6.0, m[1][2])
	assert.Equal(t, 7.0, m[2][0])
	assert.Equal(t, 9.0, v.Max())
	assert.Equal(t, 8.0, v.At(board.Coord{Row: 2, Col: 1}))
}
