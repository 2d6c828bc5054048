package quib

// Backward assignment: translating an assignment on a function quib
// into an override on an upstream source. This is the mechanism behind
// editing a computed value in place, e.g. dragging its graphics
// representation. Injective rearrangements carry element values
// through unchanged with the index mapping inverted; elementwise
// functions apply the registered inverse kernel. The walk follows the
// first data-bearing quib argument at every step and ends at the first
// input quib, where the translated assignment becomes a regular
// undoable override.

// Assign translates an assignment of value at region into an override
// on the nearest upstream input quib. On an input quib this is
// SetOverride. InversionError is returned when a step of the walk has
// no inverse; no override state is modified in that case.
func (self *Quib) Assign(region Region, value any) error {
	self.graph.stateLock.Lock()
	target, targetRegion, targetValue, err := self.invertLocked(region, value)
	self.graph.stateLock.Unlock()
	if err != nil {
		return err
	}
	target.SetOverride(targetRegion, targetValue)
	return nil
}

func (self *Quib) invertLocked(region Region, value any) (*Quib, Region, any, error) {
	if self.IsInput() {
		return self, region, value, nil
	}

	desc := self.desc
	sourceIndex := -1
	for i, arg := range self.args {
		if arg.Quib != nil && desc.IsDataArg(i) {
			sourceIndex = i
			break
		}
	}
	if sourceIndex < 0 {
		return nil, Region{}, nil, &InversionError{
			Quib:    self,
			Message: "no quib argument to assign into",
		}
	}
	source := self.args[sourceIndex].Quib

	outShape, outIsArray := self.resolveShapeLocked()
	argShape, argIsArray := source.resolveShapeLocked()
	sourceRegion := neededArgRegion(desc, sourceIndex, argShape, argIsArray, outShape, outIsArray, region)

	switch desc.Relation {
	case ShapeRelationInjective:
		sourceValue, err := self.invertRearrangedValueLocked(value, region, argShape, argIsArray, outShape, outIsArray)
		if err != nil {
			return nil, Region{}, nil, err
		}
		return source.invertLocked(sourceRegion, sourceValue)

	case ShapeRelationElementwise:
		sourceValue, err := self.invertElementwiseValueLocked(value, sourceIndex)
		if err != nil {
			return nil, Region{}, nil, err
		}
		return source.invertLocked(sourceRegion, sourceValue)

	default:
		return nil, Region{}, nil, &InversionError{
			Quib:    self,
			Message: "no inverse for " + desc.Relation.String() + " functions",
		}
	}
}

// rearrangements carry element values through unchanged; an assigned
// array is mapped element by element back into the argument layout
func (self *Quib) invertRearrangedValueLocked(value any, region Region, argShape []int, argIsArray bool, outShape []int, outIsArray bool) (any, error) {
	array, isArray := value.(*NDArray)
	if !isArray {
		return value, nil
	}
	if self.desc.MapInverse == nil || !argIsArray || !outIsArray || array.Size() != shapeSize(outShape) {
		return nil, &InversionError{
			Quib:    self,
			Message: "cannot rearrange assigned array into the argument layout",
		}
	}
	rearranged := Zeros(argShape...)
	for _, outIndex := range region.Indices(shapeSize(outShape)) {
		argFlat, ok := self.desc.MapInverse(argShape, outShape, outIndex)
		if !ok {
			return nil, &InversionError{
				Quib:    self,
				Message: "cannot resolve the index mapping",
			}
		}
		rearranged.SetAt(argFlat, array.At(outIndex))
	}
	return rearranged, nil
}

// apply the inverse kernel for the source arg: the assigned fill and
// the other data-arg values, which must resolve to scalars
func (self *Quib) invertElementwiseValueLocked(value any, sourceIndex int) (any, error) {
	fill, ok := toFloat(value)
	if !ok {
		return nil, &InversionError{
			Quib:    self,
			Message: "only scalar fills invert through elementwise functions",
		}
	}
	position := self.desc.dataArgPosition(sourceIndex)
	if len(self.desc.InverseKernels) <= position || self.desc.InverseKernels[position] == nil {
		return nil, &InversionError{
			Quib:    self,
			Message: "no inverse kernel for " + self.desc.Name,
		}
	}
	others := []float64{}
	for i, arg := range self.args {
		if i == sourceIndex || !self.desc.IsDataArg(i) {
			continue
		}
		var otherValue any
		if arg.Quib != nil {
			v, err := arg.Quib.getValueLocked(WholeRegion())
			if err != nil {
				return nil, err
			}
			otherValue = v
		} else {
			otherValue = arg.Value
		}
		other, ok := toFloat(otherValue)
		if !ok {
			return nil, &InversionError{
				Quib:    self,
				Message: "companion argument does not resolve to a scalar",
			}
		}
		others = append(others, other)
	}
	return self.desc.InverseKernels[position](fill, others), nil
}
