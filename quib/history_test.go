package quib

import (
	mathrand "math/rand"
	"testing"

	"github.com/go-playground/assert/v2"
)

func overrideState(quibs []*Quib) [][]OverrideRecord {
	state := [][]OverrideRecord{}
	for _, q := range quibs {
		state = append(state, q.Overrides())
	}
	return state
}

func TestUndoRedoRoundTrip(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{0, 0, 0, 0, 0, 0, 0, 0}))
	y, _ := Sin(x)
	quibs := []*Quib{x, y}

	initial := overrideState(quibs)

	// a random sequence of override operations
	n := 20
	for i := 0; i < n; i += 1 {
		q := quibs[mathrand.Intn(len(quibs))]
		if mathrand.Intn(4) == 0 {
			q.ClearOverride(SpanRegion(mathrand.Intn(8), mathrand.Intn(8)+1))
		} else {
			index := mathrand.Intn(8)
			q.SetOverride(IndexRegion(index), float64(i))
		}
	}
	final := overrideState(quibs)

	undos := 0
	for g.Undo() {
		undos += 1
	}
	assert.Equal(t, initial, overrideState(quibs))

	redos := 0
	for g.Redo() {
		redos += 1
	}
	assert.Equal(t, undos, redos)
	assert.Equal(t, final, overrideState(quibs))
}

func TestUndoEmptyStackNoOp(t *testing.T) {
	g := NewGraph()
	assert.Equal(t, false, g.Undo())
	assert.Equal(t, false, g.Redo())
}

func TestNewOverrideClearsRedo(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, 1.0)

	x.SetOverride(WholeRegion(), 2.0)
	x.SetOverride(WholeRegion(), 3.0)
	g.Undo()
	assert.Equal(t, true, g.CanRedo())

	// linear history: a new override forgets the undone branch
	x.SetOverride(WholeRegion(), 4.0)
	assert.Equal(t, false, g.CanRedo())

	value, _ := x.GetValue()
	assert.Equal(t, 4.0, value)
}

func TestUndoRecomputesDownstream(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3}))
	y, _ := Mul(x, ValueArg(10.0))

	value, _ := y.GetValue()
	assert.Equal(t, []float64{10, 20, 30}, value.(*NDArray).Data())

	x.SetOverride(IndexRegion(1), 5.0)
	value, _ = y.GetValue()
	assert.Equal(t, []float64{10, 50, 30}, value.(*NDArray).Data())

	g.Undo()
	value, _ = y.GetValue()
	assert.Equal(t, []float64{10, 20, 30}, value.(*NDArray).Data())

	g.Redo()
	value, _ = y.GetValue()
	assert.Equal(t, []float64{10, 50, 30}, value.(*NDArray).Data())
}

func TestClearHistory(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, 1.0)
	x.SetOverride(WholeRegion(), 2.0)
	assert.Equal(t, true, g.CanUndo())

	g.ClearHistory()
	assert.Equal(t, false, g.CanUndo())
	assert.Equal(t, false, g.CanRedo())

	// the override itself stays
	value, _ := x.GetValue()
	assert.Equal(t, 2.0, value)
}
