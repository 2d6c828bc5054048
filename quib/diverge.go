package quib

// Region translation between a node's output index space and the index
// spaces of its data-bearing arguments, driven by the function
// descriptor's shape relation. All functions here are pure and total:
// any relation + region pair yields a defined region, falling back to
// "whole" whenever indices cannot be resolved (shape mismatch after an
// upstream structural change, missing metadata, unknown shapes).

// neededArgRegion translates "stale region in the output" into the
// minimal region of one argument that must be valid to recompute it.
func neededArgRegion(
	desc *FuncDescriptor,
	argIndex int,
	argShape []int,
	argIsArray bool,
	outShape []int,
	outIsArray bool,
	outRegion Region,
) Region {
	if outRegion.IsEmpty() {
		return EmptyRegion()
	}
	if !desc.IsDataArg(argIndex) {
		// pass-through args are handed over in full
		return WholeRegion()
	}

	switch desc.Relation {
	case ShapeRelationElementwise:
		if !argIsArray || !outIsArray {
			return WholeRegion()
		}
		argSize := shapeSize(argShape)
		outSize := shapeSize(outShape)
		indices := []int{}
		for _, outIndex := range outRegion.Indices(outSize) {
			argFlat, ok := broadcastFlatIndex(outShape, argShape, outIndex)
			if !ok {
				return WholeRegion()
			}
			indices = append(indices, argFlat)
		}
		return IndexRegion(indices...).resolve(argSize)

	case ShapeRelationReduction:
		if !argIsArray {
			return WholeRegion()
		}
		if desc.ReduceAxes == nil || !outIsArray {
			// reduced over all axes
			return WholeRegion()
		}
		argSize := shapeSize(argShape)
		outSize := shapeSize(outShape)
		indices := []int{}
		for argFlat := 0; argFlat < argSize; argFlat += 1 {
			outFlat, ok := reduceProject(argShape, desc.ReduceAxes, outShape, argFlat)
			if !ok {
				return WholeRegion()
			}
			if outRegion.resolve(outSize).Contains(outFlat) {
				indices = append(indices, argFlat)
			}
		}
		return IndexRegion(indices...)

	case ShapeRelationInjective:
		if !argIsArray || !outIsArray || desc.MapInverse == nil {
			return WholeRegion()
		}
		argSize := shapeSize(argShape)
		outSize := shapeSize(outShape)
		indices := []int{}
		for _, outIndex := range outRegion.Indices(outSize) {
			argFlat, ok := desc.MapInverse(argShape, outShape, outIndex)
			if !ok {
				return WholeRegion()
			}
			indices = append(indices, argFlat)
		}
		return IndexRegion(indices...).resolve(argSize)

	default:
		return WholeRegion()
	}
}

// affectedOutRegion translates "changed region in one argument" into
// the region of the output that could be affected. An empty result
// proves no output index reads the changed indices.
func affectedOutRegion(
	desc *FuncDescriptor,
	argIndex int,
	argShape []int,
	argIsArray bool,
	outShape []int,
	outIsArray bool,
	argRegion Region,
) Region {
	if argRegion.IsEmpty() {
		return EmptyRegion()
	}
	if !desc.IsDataArg(argIndex) {
		return WholeRegion()
	}

	switch desc.Relation {
	case ShapeRelationElementwise:
		if !argIsArray || !outIsArray {
			return WholeRegion()
		}
		argSize := shapeSize(argShape)
		outSize := shapeSize(outShape)
		resolved := argRegion.resolve(argSize)
		indices := []int{}
		for outIndex := 0; outIndex < outSize; outIndex += 1 {
			argFlat, ok := broadcastFlatIndex(outShape, argShape, outIndex)
			if !ok {
				return WholeRegion()
			}
			if resolved.Contains(argFlat) {
				indices = append(indices, outIndex)
			}
		}
		return IndexRegion(indices...)

	case ShapeRelationReduction:
		if !argIsArray {
			return WholeRegion()
		}
		if desc.ReduceAxes == nil || !outIsArray {
			return WholeRegion()
		}
		argSize := shapeSize(argShape)
		outSize := shapeSize(outShape)
		indices := []int{}
		for _, argFlat := range argRegion.Indices(argSize) {
			outFlat, ok := reduceProject(argShape, desc.ReduceAxes, outShape, argFlat)
			if !ok {
				return WholeRegion()
			}
			indices = append(indices, outFlat)
		}
		return IndexRegion(indices...).resolve(outSize)

	case ShapeRelationInjective:
		if !argIsArray || !outIsArray || desc.MapIndex == nil {
			return WholeRegion()
		}
		argSize := shapeSize(argShape)
		outSize := shapeSize(outShape)
		indices := []int{}
		for _, argFlat := range argRegion.Indices(argSize) {
			outFlat, ok := desc.MapIndex(argShape, outShape, argFlat)
			if !ok {
				return WholeRegion()
			}
			indices = append(indices, outFlat)
		}
		return IndexRegion(indices...).resolve(outSize)

	default:
		return WholeRegion()
	}
}

// drop the reduced axes of an input coordinate, yielding the flat
// index of the output slot it contributes to
func reduceProject(argShape []int, reduceAxes []int, outShape []int, argFlat int) (int, bool) {
	coords := flatToCoords(argShape, argFlat)
	outCoords := []int{}
	for axis, c := range coords {
		reduced := false
		for _, r := range reduceAxes {
			if r == axis {
				reduced = true
				break
			}
		}
		if !reduced {
			outCoords = append(outCoords, c)
		}
	}
	if len(outCoords) != len(outShape) {
		return 0, false
	}
	for i, c := range outCoords {
		if outShape[i] <= c {
			return 0, false
		}
	}
	return coordsToFlat(outShape, outCoords), true
}
