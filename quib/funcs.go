package quib

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Built-in catalogue of quiby functions. Builders return a new quib
// for the deferred application; evaluation happens lazily on GetValue.
// Operator sugar for quib expressions layers on top of these builders.

func init() {
	RegisterQuibyFunc(elementwiseUnary("neg", func(x float64) float64 { return -x }, func(v float64) float64 { return -v }))
	RegisterQuibyFunc(elementwiseUnary("abs", math.Abs, nil))
	RegisterQuibyFunc(elementwiseUnary("sin", math.Sin, math.Asin))
	RegisterQuibyFunc(elementwiseUnary("cos", math.Cos, math.Acos))
	RegisterQuibyFunc(elementwiseUnary("tan", math.Tan, math.Atan))
	RegisterQuibyFunc(elementwiseUnary("exp", math.Exp, math.Log))
	RegisterQuibyFunc(elementwiseUnary("log", math.Log, math.Exp))
	RegisterQuibyFunc(elementwiseUnary("sqrt", math.Sqrt, func(v float64) float64 { return v * v }))

	RegisterQuibyFunc(elementwiseBinary("add",
		func(x float64, y float64) float64 { return x + y },
		func(v float64, y float64) float64 { return v - y },
		func(v float64, x float64) float64 { return v - x }))
	RegisterQuibyFunc(elementwiseBinary("sub",
		func(x float64, y float64) float64 { return x - y },
		func(v float64, y float64) float64 { return v + y },
		func(v float64, x float64) float64 { return x - v }))
	RegisterQuibyFunc(elementwiseBinary("mul",
		func(x float64, y float64) float64 { return x * y },
		func(v float64, y float64) float64 { return v / y },
		func(v float64, x float64) float64 { return v / x }))
	RegisterQuibyFunc(elementwiseBinary("div",
		func(x float64, y float64) float64 { return x / y },
		func(v float64, y float64) float64 { return v * y },
		func(v float64, x float64) float64 { return x / v }))
	RegisterQuibyFunc(elementwiseBinary("pow",
		math.Pow,
		func(v float64, y float64) float64 { return math.Pow(v, 1/y) },
		func(v float64, x float64) float64 { return math.Log(v) / math.Log(x) }))

	RegisterQuibyFunc(reductionDesc("sum", nil))
	RegisterQuibyFunc(reductionDesc("prod", nil))
	RegisterQuibyFunc(reductionDesc("mean", nil))
	RegisterQuibyFunc(reductionDesc("min", nil))
	RegisterQuibyFunc(reductionDesc("max", nil))
}

func Neg(x *Quib) (*Quib, error)  { return unary("neg", x) }
func Abs(x *Quib) (*Quib, error)  { return unary("abs", x) }
func Sin(x *Quib) (*Quib, error)  { return unary("sin", x) }
func Cos(x *Quib) (*Quib, error)  { return unary("cos", x) }
func Tan(x *Quib) (*Quib, error)  { return unary("tan", x) }
func Exp(x *Quib) (*Quib, error)  { return unary("exp", x) }
func Log(x *Quib) (*Quib, error)  { return unary("log", x) }
func Sqrt(x *Quib) (*Quib, error) { return unary("sqrt", x) }

func Add(x *Quib, y Arg) (*Quib, error) { return binary("add", x, y) }
func Sub(x *Quib, y Arg) (*Quib, error) { return binary("sub", x, y) }
func Mul(x *Quib, y Arg) (*Quib, error) { return binary("mul", x, y) }
func Div(x *Quib, y Arg) (*Quib, error) { return binary("div", x, y) }
func Pow(x *Quib, y Arg) (*Quib, error) { return binary("pow", x, y) }

func Sum(x *Quib, axes ...int) (*Quib, error)  { return reduce("sum", x, axes) }
func Prod(x *Quib, axes ...int) (*Quib, error) { return reduce("prod", x, axes) }
func Mean(x *Quib, axes ...int) (*Quib, error) { return reduce("mean", x, axes) }
func Min(x *Quib, axes ...int) (*Quib, error)  { return reduce("min", x, axes) }
func Max(x *Quib, axes ...int) (*Quib, error)  { return reduce("max", x, axes) }

func unary(name string, x *Quib) (*Quib, error) {
	return Call(x.graph, name, QuibArg(x))
}

func binary(name string, x *Quib, y Arg) (*Quib, error) {
	return Call(x.graph, name, QuibArg(x), y)
}

func reduce(name string, x *Quib, axes []int) (*Quib, error) {
	if !IsQuiby(name) {
		return nil, &GraphConstructionError{FuncName: name, Message: "not a quiby function"}
	}
	// a fresh descriptor per axis set, the registered prototype stays
	// the all-axes reduction
	var desc *FuncDescriptor
	if 0 < len(axes) {
		desc = reductionDesc(name, axes)
	} else {
		desc, _ = LookupQuibyFunc(name)
	}
	return NewQuib(x.graph, desc, QuibArg(x))
}

// elementwise

func elementwiseUnary(name string, fn func(float64) float64, inverse func(float64) float64) *FuncDescriptor {
	kernel := func(args []float64) float64 {
		return fn(args[0])
	}
	var inverseKernels []InverseKernelFunction
	if inverse != nil {
		inverseKernels = []InverseKernelFunction{
			func(outValue float64, others []float64) float64 {
				return inverse(outValue)
			},
		}
	}
	return &FuncDescriptor{
		Name:           name,
		Relation:       ShapeRelationElementwise,
		Kernel:         kernel,
		InverseKernels: inverseKernels,
		Call:           elementwiseCall(kernel, 1),
		OutShape:       elementwiseShape,
	}
}

func elementwiseBinary(name string, fn func(float64, float64) float64, inverseX func(float64, float64) float64, inverseY func(float64, float64) float64) *FuncDescriptor {
	kernel := func(args []float64) float64 {
		return fn(args[0], args[1])
	}
	inverseKernels := make([]InverseKernelFunction, 2)
	if inverseX != nil {
		inverseKernels[0] = func(outValue float64, others []float64) float64 {
			return inverseX(outValue, others[0])
		}
	}
	if inverseY != nil {
		inverseKernels[1] = func(outValue float64, others []float64) float64 {
			return inverseY(outValue, others[0])
		}
	}
	return &FuncDescriptor{
		Name:           name,
		Relation:       ShapeRelationElementwise,
		Kernel:         kernel,
		InverseKernels: inverseKernels,
		Call:           elementwiseCall(kernel, 2),
		OutShape:       elementwiseShape,
	}
}

// broadcast shape of the data-bearing args. Not ok when no arg is an
// array; the output is then a scalar.
func elementwiseShape(argShapes [][]int) ([]int, bool) {
	var shape []int
	found := false
	for _, argShape := range argShapes {
		if argShape == nil {
			continue
		}
		if !found {
			shape = argShape
			found = true
			continue
		}
		broadcast, ok := broadcastShapes(shape, argShape)
		if !ok {
			return nil, false
		}
		shape = broadcast
	}
	return shape, found
}

// whole-value evaluation of an elementwise kernel with numpy-style
// broadcasting over the args
func elementwiseCall(kernel KernelFunction, arity int) CallFunction {
	return func(args []any) (any, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("want %d args, have %d", arity, len(args))
		}
		var outShape []int
		anyArray := false
		for _, arg := range args {
			if a, ok := arg.(*NDArray); ok {
				if !anyArray {
					outShape = a.shape
					anyArray = true
					continue
				}
				broadcast, ok := broadcastShapes(outShape, a.shape)
				if !ok {
					return nil, fmt.Errorf("shapes do not broadcast: %v, %v", outShape, a.shape)
				}
				outShape = broadcast
			}
		}
		if !anyArray {
			kernelArgs := make([]float64, len(args))
			for i, arg := range args {
				f, ok := toFloat(arg)
				if !ok {
					return nil, fmt.Errorf("arg %d is not numeric: %T", i, arg)
				}
				kernelArgs[i] = f
			}
			return kernel(kernelArgs), nil
		}
		out := Zeros(outShape...)
		kernelArgs := make([]float64, len(args))
		for outIndex := 0; outIndex < out.Size(); outIndex += 1 {
			for i, arg := range args {
				if a, ok := arg.(*NDArray); ok {
					argFlat, ok := broadcastFlatIndex(outShape, a.shape, outIndex)
					if !ok {
						return nil, fmt.Errorf("shape %v does not broadcast into %v", a.shape, outShape)
					}
					kernelArgs[i] = a.At(argFlat)
				} else {
					f, ok := toFloat(arg)
					if !ok {
						return nil, fmt.Errorf("arg %d is not numeric: %T", i, arg)
					}
					kernelArgs[i] = f
				}
			}
			out.SetAt(outIndex, kernel(kernelArgs))
		}
		return out, nil
	}
}

// reductions

func reductionDesc(name string, axes []int) *FuncDescriptor {
	desc := &FuncDescriptor{
		Name:       name,
		Relation:   ShapeRelationReduction,
		ReduceAxes: slices.Clone(axes),
	}
	desc.Call = func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 arg, have %d", len(args))
		}
		return reduceValue(name, args[0], desc.ReduceAxes)
	}
	desc.OutShape = func(argShapes [][]int) ([]int, bool) {
		if len(argShapes) == 0 || argShapes[0] == nil {
			return nil, false
		}
		if desc.ReduceAxes == nil {
			// reduced to a scalar
			return nil, false
		}
		return dropAxes(argShapes[0], desc.ReduceAxes)
	}
	return desc
}

func dropAxes(shape []int, axes []int) ([]int, bool) {
	for _, axis := range axes {
		if axis < 0 || len(shape) <= axis {
			return nil, false
		}
	}
	out := []int{}
	for i, d := range shape {
		if !slices.Contains(axes, i) {
			out = append(out, d)
		}
	}
	return out, true
}

func reduceValue(name string, value any, axes []int) (any, error) {
	array, ok := value.(*NDArray)
	if !ok {
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("cannot reduce %T", value)
		}
		if name == "prod" || name == "sum" || name == "mean" || name == "min" || name == "max" {
			return f, nil
		}
		return nil, fmt.Errorf("unknown reduction %s", name)
	}

	if axes == nil {
		acc, count := 0.0, 0
		for _, v := range array.data {
			acc = reduceFold(name, acc, v, count == 0)
			count += 1
		}
		if count == 0 {
			return nil, fmt.Errorf("%s of empty array", name)
		}
		if name == "mean" {
			return acc / float64(count), nil
		}
		return acc, nil
	}

	outShape, ok := dropAxes(array.shape, axes)
	if !ok {
		return nil, fmt.Errorf("axes %v out of range for shape %v", axes, array.shape)
	}
	out := Zeros(outShape...)
	counts := make([]int, out.Size())
	for argFlat := 0; argFlat < array.Size(); argFlat += 1 {
		outFlat, ok := reduceProject(array.shape, axes, outShape, argFlat)
		if !ok {
			return nil, fmt.Errorf("axes %v out of range for shape %v", axes, array.shape)
		}
		out.SetAt(outFlat, reduceFold(name, out.At(outFlat), array.At(argFlat), counts[outFlat] == 0))
		counts[outFlat] += 1
	}
	if name == "mean" {
		for i := range out.data {
			if 0 < counts[i] {
				out.data[i] /= float64(counts[i])
			}
		}
	}
	return out, nil
}

func reduceFold(name string, acc float64, v float64, first bool) float64 {
	switch name {
	case "prod":
		if first {
			return v
		}
		return acc * v
	case "min":
		if first || v < acc {
			return v
		}
		return acc
	case "max":
		if first || acc < v {
			return v
		}
		return acc
	default:
		// sum, mean
		if first {
			return v
		}
		return acc + v
	}
}

// injective shape changes

// Transpose permutes the axes of an array quib. With no axes the order
// is reversed.
func Transpose(x *Quib, axes ...int) (*Quib, error) {
	desc := &FuncDescriptor{
		Name:     "transpose",
		Relation: ShapeRelationInjective,
	}
	perm := slices.Clone(axes)
	desc.OutShape = func(argShapes [][]int) ([]int, bool) {
		if len(argShapes) == 0 || argShapes[0] == nil {
			return nil, false
		}
		return permuteShape(argShapes[0], effectivePerm(perm, len(argShapes[0])))
	}
	desc.MapIndex = func(inShape []int, outShape []int, flatIndex int) (int, bool) {
		p := effectivePerm(perm, len(inShape))
		if !validPerm(p, len(inShape)) {
			return 0, false
		}
		coords := flatToCoords(inShape, flatIndex)
		outCoords := make([]int, len(coords))
		for i, axis := range p {
			outCoords[i] = coords[axis]
		}
		if len(outShape) != len(outCoords) {
			return 0, false
		}
		return coordsToFlat(outShape, outCoords), true
	}
	desc.MapInverse = func(inShape []int, outShape []int, flatIndex int) (int, bool) {
		p := effectivePerm(perm, len(inShape))
		if !validPerm(p, len(inShape)) {
			return 0, false
		}
		outCoords := flatToCoords(outShape, flatIndex)
		coords := make([]int, len(outCoords))
		for i, axis := range p {
			if len(coords) <= axis {
				return 0, false
			}
			coords[axis] = outCoords[i]
		}
		return coordsToFlat(inShape, coords), true
	}
	desc.Call = func(args []any) (any, error) {
		array, ok := args[0].(*NDArray)
		if !ok {
			return args[0], nil
		}
		p := effectivePerm(perm, array.Ndim())
		outShape, ok := permuteShape(array.shape, p)
		if !ok {
			return nil, fmt.Errorf("invalid transpose axes %v for shape %v", p, array.shape)
		}
		out := Zeros(outShape...)
		for flatIndex := 0; flatIndex < array.Size(); flatIndex += 1 {
			outFlat, _ := desc.MapIndex(array.shape, outShape, flatIndex)
			out.SetAt(outFlat, array.At(flatIndex))
		}
		return out, nil
	}
	return NewQuib(x.graph, desc, QuibArg(x))
}

// Reshape reinterprets an array quib's shape, preserving row-major
// element order.
func Reshape(x *Quib, shape ...int) (*Quib, error) {
	newShape := slices.Clone(shape)
	desc := &FuncDescriptor{
		Name:     "reshape",
		Relation: ShapeRelationInjective,
	}
	desc.OutShape = func(argShapes [][]int) ([]int, bool) {
		if len(argShapes) == 0 || argShapes[0] == nil {
			return nil, false
		}
		if shapeSize(argShapes[0]) != shapeSize(newShape) {
			return nil, false
		}
		return newShape, true
	}
	identity := func(inShape []int, outShape []int, flatIndex int) (int, bool) {
		if shapeSize(inShape) != shapeSize(outShape) {
			return 0, false
		}
		return flatIndex, true
	}
	desc.MapIndex = identity
	desc.MapInverse = identity
	desc.Call = func(args []any) (any, error) {
		array, ok := args[0].(*NDArray)
		if !ok {
			return nil, fmt.Errorf("cannot reshape %T", args[0])
		}
		if array.Size() != shapeSize(newShape) {
			return nil, fmt.Errorf("cannot reshape %v into %v", array.shape, newShape)
		}
		return &NDArray{
			shape: slices.Clone(newShape),
			data:  slices.Clone(array.data),
		}, nil
	}
	return NewQuib(x.graph, desc, QuibArg(x))
}

// Flip reverses an array quib along one axis.
func Flip(x *Quib, axis int) (*Quib, error) {
	desc := &FuncDescriptor{
		Name:     "flip",
		Relation: ShapeRelationInjective,
	}
	desc.OutShape = func(argShapes [][]int) ([]int, bool) {
		if len(argShapes) == 0 || argShapes[0] == nil {
			return nil, false
		}
		if axis < 0 || len(argShapes[0]) <= axis {
			return nil, false
		}
		return argShapes[0], true
	}
	flip := func(inShape []int, outShape []int, flatIndex int) (int, bool) {
		if axis < 0 || len(inShape) <= axis {
			return 0, false
		}
		coords := flatToCoords(inShape, flatIndex)
		coords[axis] = inShape[axis] - 1 - coords[axis]
		return coordsToFlat(inShape, coords), true
	}
	desc.MapIndex = flip
	desc.MapInverse = flip
	desc.Call = func(args []any) (any, error) {
		array, ok := args[0].(*NDArray)
		if !ok {
			return nil, fmt.Errorf("cannot flip %T", args[0])
		}
		if axis < 0 || array.Ndim() <= axis {
			return nil, fmt.Errorf("flip axis %d out of range for shape %v", axis, array.shape)
		}
		out := Zeros(array.shape...)
		for flatIndex := 0; flatIndex < array.Size(); flatIndex += 1 {
			outFlat, _ := desc.MapIndex(array.shape, array.shape, flatIndex)
			out.SetAt(outFlat, array.At(flatIndex))
		}
		return out, nil
	}
	return NewQuib(x.graph, desc, QuibArg(x))
}

func effectivePerm(perm []int, ndim int) []int {
	if len(perm) == ndim {
		return perm
	}
	// default: reverse axes
	out := make([]int, ndim)
	for i := range out {
		out[i] = ndim - 1 - i
	}
	return out
}

func validPerm(perm []int, ndim int) bool {
	if len(perm) != ndim {
		return false
	}
	seen := make([]bool, ndim)
	for _, axis := range perm {
		if axis < 0 || ndim <= axis || seen[axis] {
			return false
		}
		seen[axis] = true
	}
	return true
}

func permuteShape(shape []int, perm []int) ([]int, bool) {
	if !validPerm(perm, len(shape)) {
		return nil, false
	}
	out := make([]int, len(shape))
	for i, axis := range perm {
		out[i] = shape[axis]
	}
	return out, true
}
