package quib

import (
	"errors"
	"math"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestScalarScenario(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, 1.5)
	y, err := Sin(x)
	assert.Equal(t, nil, err)

	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, math.Sin(1.5), value)

	x.SetOverride(WholeRegion(), 3.0)
	value, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, math.Sin(3.0), value)

	g.Undo()
	value, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, math.Sin(1.5), value)

	g.Redo()
	value, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, math.Sin(3.0), value)
}

func TestDeterminism(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{0.1, 0.2, 0.3}))
	y, _ := Sin(x)
	z, _ := Sum(y)

	first, err := z.GetValue()
	assert.Equal(t, nil, err)
	second, err := z.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, first, second)
}

func TestElementwiseArray(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3}))
	y, _ := Mul(x, ValueArg(10.0))

	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, []float64{10, 20, 30}, value.(*NDArray).Data())
}

func TestElementwiseBroadcast(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, &NDArray{shape: []int{2, 1}, data: []float64{1, 2}})
	y := NewInput(g, FromSlice([]float64{10, 20, 30}))
	z, _ := Add(x, QuibArg(y))

	value, err := z.GetValue()
	assert.Equal(t, nil, err)
	array := value.(*NDArray)
	assert.Equal(t, []int{2, 3}, array.Shape())
	assert.Equal(t, []float64{11, 21, 31, 12, 22, 32}, array.Data())
}

func TestMinimalRecompute(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))

	calls := 0
	desc := &FuncDescriptor{
		Name:     "probe",
		Relation: ShapeRelationElementwise,
		Kernel: func(args []float64) float64 {
			calls += 1
			return args[0] * 2
		},
		OutShape: elementwiseShape,
	}
	y, err := NewQuib(g, desc, QuibArg(x))
	assert.Equal(t, nil, err)

	_, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 10, calls)

	// cached: no further executions
	_, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 10, calls)

	// invalidating one index re-executes the kernel exactly once
	x.Invalidate(IndexRegion(3))
	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 11, calls)
	assert.Equal(t, 6.0, value.(*NDArray).At(3))
}

func TestPartialRegionRequest(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{0, 1, 2, 3, 4}))

	calls := 0
	desc := &FuncDescriptor{
		Name:     "probe",
		Relation: ShapeRelationElementwise,
		Kernel: func(args []float64) float64 {
			calls += 1
			return args[0] + 100
		},
		OutShape: elementwiseShape,
	}
	y, _ := NewQuib(g, desc, QuibArg(x))

	// requesting one index computes one element
	value, err := y.GetValueRegion(IndexRegion(2))
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 102.0, value.(*NDArray).At(2))

	// the rest on the whole request
	_, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, calls)
}

func TestReductionChain(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3, 4}))
	s, _ := Sum(x)

	value, err := s.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 10.0, value)

	m, _ := Mean(x)
	value, err = m.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2.5, value)
}

func TestAxisReduction(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, &NDArray{shape: []int{2, 3}, data: []float64{1, 2, 3, 4, 5, 6}})
	s, err := Sum(x, 1)
	assert.Equal(t, nil, err)

	value, err := s.GetValue()
	assert.Equal(t, nil, err)
	array := value.(*NDArray)
	assert.Equal(t, []int{2}, array.Shape())
	assert.Equal(t, []float64{6, 15}, array.Data())
}

func TestComputationError(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, 2.0)
	desc := Quibify("boom", func(args []any) (any, error) {
		return nil, errors.New("boom")
	})
	y, _ := NewQuib(g, desc, QuibArg(x))

	_, err := y.GetValue()
	assert.NotEqual(t, nil, err)
	var computationErr *ComputationError
	assert.Equal(t, true, errors.As(err, &computationErr))
	assert.Equal(t, y, computationErr.Quib)

	// the stale region stays stale: evaluation runs again
	_, err = y.GetValue()
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, y.cache.staleIn(WholeRegion()).Equal(SpanRegion(0, 1)))
}

func TestOpaqueFunction(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3}))

	calls := 0
	desc := Quibify("total", func(args []any) (any, error) {
		calls += 1
		total := 0.0
		for _, v := range args[0].(*NDArray).Data() {
			total += v
		}
		return total, nil
	})
	y, _ := NewQuib(g, desc, QuibArg(x))

	value, err := y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 6.0, value)
	assert.Equal(t, 1, calls)

	// any upstream change forces full recomputation
	x.Invalidate(IndexRegion(0))
	value, err = y.GetValue()
	assert.Equal(t, nil, err)
	assert.Equal(t, 6.0, value)
	assert.Equal(t, 2, calls)
}

func TestCacheModeOff(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, 1.0)

	calls := 0
	desc := &FuncDescriptor{
		Name:     "probe",
		Relation: ShapeRelationElementwise,
		Kernel: func(args []float64) float64 {
			calls += 1
			return args[0]
		},
		OutShape: elementwiseShape,
	}
	y, _ := NewQuib(g, desc, QuibArg(x))
	y.SetCacheMode(CacheModeOff)

	y.GetValue()
	y.GetValue()
	assert.Equal(t, 2, calls)
}

func TestReturnedValueIsACopy(t *testing.T) {
	g := NewGraph()
	x := NewInput(g, FromSlice([]float64{1, 2, 3}))

	value, _ := x.GetValue()
	value.(*NDArray).SetAt(0, 999)

	again, _ := x.GetValue()
	assert.Equal(t, 1.0, again.(*NDArray).At(0))
}
