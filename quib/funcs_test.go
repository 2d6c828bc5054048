package quib

import (
	"math"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestTranspose(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, &NDArray{shape: []int{2, 3}, data: []float64{1, 2, 3, 4, 5, 6}})
	y, err := Transpose(x)
	assert.Equal(t, nil, err)

	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	array := value.(*NDArray)
	assert.Equal(t, []int{3, 2}, array.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, array.Data())
}

func TestTransposeInvalidation(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, &NDArray{shape: []int{2, 3}, data: []float64{1, 2, 3, 4, 5, 6}})
	y, _ := Transpose(x)
	y.GetValue()

	// x[1,2] (flat 5) lands at y[2,1] (flat 5 in the [3,2] layout)
	x.Invalidate(IndexRegion(5))
	assert.Equal(t, []int{5}, y.cache.staleIn(WholeRegion()).Indices(6))

	// x[0,1] (flat 1) lands at y[1,0] (flat 2)
	x.Invalidate(IndexRegion(1))
	assert.Equal(t, []int{2, 5}, y.cache.staleIn(WholeRegion()).Indices(6))
}

func TestReshape(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3, 4, 5, 6}))
	y, err := Reshape(x, 2, 3)
	assert.Equal(t, nil, err)

	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	array := value.(*NDArray)
	assert.Equal(t, []int{2, 3}, array.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, array.Data())

	// flat order is preserved, so invalidation maps index to index
	x.Invalidate(IndexRegion(4))
	assert.Equal(t, []int{4}, y.cache.staleIn(WholeRegion()).Indices(6))
}

func TestFlip(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3, 4}))
	y, err := Flip(x, 0)
	assert.Equal(t, nil, err)

	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, []float64{4, 3, 2, 1}, value.(*NDArray).Data())

	x.Invalidate(IndexRegion(0))
	assert.Equal(t, []int{3}, y.cache.staleIn(WholeRegion()).Indices(4))
}

func TestElementwiseCallFallback(t *testing.T) {
	// the whole-value call path computes the same results as the
	// per-element kernel path
	desc, _ := LookupQuibyFunc("sin")
	result, err := desc.Call([]any{FromSlice([]float64{0, 1, 2})})
	assert.Equal(t, nil, err)
	assert.Equal(t, []float64{math.Sin(0), math.Sin(1), math.Sin(2)}, result.(*NDArray).Data())

	result, err = desc.Call([]any{0.5})
	assert.Equal(t, nil, err)
	assert.Equal(t, math.Sin(0.5), result)

	_, err = desc.Call([]any{"not a number"})
	assert.NotEqual(t, nil, err)
}

func TestMinMaxProd(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{3, 1, 4, 1, 5}))

	minQuib, _ := Min(x)
	value, _ := minQuib.GetValue()
	assert.Equal(t, 1.0, value)

	maxQuib, _ := Max(x)
	value, _ = maxQuib.GetValue()
	assert.Equal(t, 5.0, value)

	prodQuib, _ := Prod(x)
	value, _ = prodQuib.GetValue()
	assert.Equal(t, 60.0, value)
}

func TestShapeMismatchIsComputationError(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3}))
	y := NewInput(g, FromSlice([]float64{1, 2}))
	z, err := Add(x, QuibArg(y))
	assert.Equal(t, nil, err)

	_, err = z.GetValue()
	assert.NotEqual(t, nil, err)
}
