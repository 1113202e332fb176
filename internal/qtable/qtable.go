// Package qtable holds the sparse state -> action-value mapping for one role.
package qtable

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"golang.org/x/exp/slices"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
)

// Values is a 3x3 action-value matrix laid out in board.Actions order.
type Values [board.Size * board.Size]float64

// At returns the value of action c. It panics if c is off the board.
func (v Values) At(c board.Coord) float64 {
	return v[mustIndex(c)]
}

func mustIndex(c board.Coord) int {
	i := board.ActionIndex(c)
	if i < 0 {
		panic(fmt.Sprintf("qtable: action %v is off the board", c))
	}
	return i
}

func (v Values) Max() float64 {
	return floats.Max(v[:])
}

// Matrix returns the values as rows, which is how they are rendered.
func (v Values) Matrix() [board.Size][board.Size]float64 {
	var m [board.Size][board.Size]float64
	for i, c := range board.Actions {
		m[c.Row][c.Col] = v[i]
	}
	return m
}

// Transition is one (state, action, next-state) step taken by a role.
type Transition struct {
	State  board.Key
	Action board.Coord
	Next   board.Key
}

// Table is not safe for concurrent mutation.
type Table struct {
	entries map[board.Key]Values
}

func New() *Table {
	return &Table{entries: make(map[board.Key]Values)}
}

// FromEntries copies entries into a new table.
func FromEntries(entries map[board.Key]Values) *Table {
	t := &Table{entries: make(map[board.Key]Values, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Lookup returns the stored vector. Unseen states are not materialised.
func (t *Table) Lookup(k board.Key) (Values, bool) {
	if t == nil {
		return Values{}, false
	}
	v, ok := t.entries[k]
	return v, ok
}

func (t *Table) Has(k board.Key) bool {
	_, ok := t.entries[k]
	return ok
}

// Value returns q(k, c), zero for unseen states.
func (t *Table) Value(k board.Key, c board.Coord) float64 {
	return t.entries[k].At(c)
}

// MaxValue returns max_a q(k, a) over all nine actions, zero for unseen states.
func (t *Table) MaxValue(k board.Key) float64 {
	v, ok := t.entries[k]
	if !ok {
		return 0
	}
	return v.Max()
}

// Update applies one-step temporal-difference learning to tr and returns the
// new value:
//
//	q[s][a] += alpha * (reward + gamma*max(q[s']) - q[s][a])
//
// It panics if tr.Action is off the board.
func (t *Table) Update(tr Transition, reward, alpha, gamma float64) float64 {
	i := mustIndex(tr.Action)
	target := reward + gamma*t.MaxValue(tr.Next)
	v := t.entries[tr.State]
	v[i] += alpha * (target - v[i])
	t.entries[tr.State] = v
	return v[i]
}

// Set stores v for k, replacing any previous vector.
func (t *Table) Set(k board.Key, v Values) {
	t.entries[k] = v
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Keys returns the stored keys in lexical order.
func (t *Table) Keys() []board.Key {
	keys := make([]board.Key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Entries returns a copy of the underlying map.
func (t *Table) Entries() map[board.Key]Values {
	if t == nil {
		return map[board.Key]Values{}
	}
	out := make(map[board.Key]Values, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

func (t *Table) Clone() *Table {
	if t == nil {
		return New()
	}
	return FromEntries(t.entries)
}

// Equal compares keys exactly and values within tol.
func (t *Table) Equal(other *Table, tol float64) bool {
	if t.Len() != other.Len() {
		return false
	}
	for k, v := range t.entries {
		w, ok := other.entries[k]
		if !ok {
			return false
		}
		if !floats.EqualApprox(v[:], w[:], tol) {
			return false
		}
	}
	return true
}
