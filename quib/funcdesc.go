package quib

import (
	"golang.org/x/exp/slices"
)

// ShapeRelation classifies how a function's output indices depend on
// its data-bearing input indices. It is inert metadata consulted only
// by region translation.
type ShapeRelation int

const (
	// no static relation. Any input change invalidates the whole output.
	ShapeRelationOpaque ShapeRelation = iota
	// output index i depends only on input index i, with numpy
	// broadcasting over data-bearing args
	ShapeRelationElementwise
	// every output index depends on all input indices along the
	// reduced axes
	ShapeRelationReduction
	// output is a deterministic rearrangement of the input with a
	// computable index mapping
	ShapeRelationInjective
)

func (self ShapeRelation) String() string {
	switch self {
	case ShapeRelationElementwise:
		return "elementwise"
	case ShapeRelationReduction:
		return "reduction"
	case ShapeRelationInjective:
		return "injective"
	default:
		return "opaque"
	}
}

// CallFunction evaluates the wrapped callable on fully gathered
// argument values.
type CallFunction = func(args []any) (any, error)

// KernelFunction evaluates one output element of an elementwise
// function from the corresponding elements of the data-bearing args.
type KernelFunction = func(args []float64) float64

// IndexMapFunction maps a flat index between the input and output
// spaces of an injective shape change. ok is false when the index
// cannot be resolved.
type IndexMapFunction = func(inShape []int, outShape []int, flatIndex int) (int, bool)

// InverseKernelFunction computes the value one data-bearing arg must
// take for an elementwise output element to equal outValue, given the
// other data-arg element values in arg order.
type InverseKernelFunction = func(outValue float64, others []float64) float64

// ShapeFunction derives the output shape from the data-bearing arg
// shapes. nil entries are non-array args.
type ShapeFunction = func(argShapes [][]int) ([]int, bool)

// FuncDescriptor wraps an external callable with the metadata the
// engine needs: which args carry data, and how output indices relate
// to input indices.
type FuncDescriptor struct {
	Name     string
	Relation ShapeRelation

	// indices of data-bearing positional args. nil means all args
	// are data-bearing.
	DataArgs []int

	Call   CallFunction
	Kernel KernelFunction

	// elementwise only. One entry per data-bearing arg, nil entries
	// mark args that cannot be inverted through.
	InverseKernels []InverseKernelFunction

	// reduction only. nil means reduce over all axes.
	ReduceAxes []int

	// injective only. MapIndex maps input flat index to output flat
	// index, MapInverse the reverse.
	MapIndex   IndexMapFunction
	MapInverse IndexMapFunction

	OutShape ShapeFunction
}

func (self *FuncDescriptor) IsDataArg(argIndex int) bool {
	if self.DataArgs == nil {
		return true
	}
	return slices.Contains(self.DataArgs, argIndex)
}

// position of argIndex among the data-bearing args, -1 for non-data args
func (self *FuncDescriptor) dataArgPosition(argIndex int) int {
	if !self.IsDataArg(argIndex) {
		return -1
	}
	position := 0
	for i := 0; i < argIndex; i += 1 {
		if self.IsDataArg(i) {
			position += 1
		}
	}
	return position
}

// Quibify wraps any callable as an opaque descriptor. This is the safe
// fallback for callables with no registered metadata: any input change
// invalidates the whole output.
func Quibify(name string, call CallFunction) *FuncDescriptor {
	return &FuncDescriptor{
		Name:     name,
		Relation: ShapeRelationOpaque,
		Call:     call,
	}
}
