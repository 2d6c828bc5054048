package quib

import (
	"errors"

	"github.com/golang/glog"
)

// Lazy, consumer-driven pull evaluation. GetValue recurses into the
// dependency graph under one hold of the graph state lock, recomputing
// exactly the stale sub-regions the requested region needs.

// GetValue returns the quib's whole value, computing stale regions
// first. The returned value is a copy; mutating it does not touch the
// cache.
func (self *Quib) GetValue() (any, error) {
	return self.GetValueRegion(WholeRegion())
}

// GetValueRegion returns the quib's value with at least `region`
// computed and overrides applied. Indices outside the requested region
// may hold stale content.
func (self *Quib) GetValueRegion(region Region) (any, error) {
	self.graph.stateLock.Lock()
	value, err := self.getValueLocked(region)
	self.graph.stateLock.Unlock()
	return value, err
}

func (self *Quib) getValueLocked(region Region) (any, error) {
	self.ensureCacheLocked()

	stale := self.cache.staleIn(region)
	if !stale.IsEmpty() {
		glog.V(2).Infof("[get] %s region=%s stale=%s\n", self.label(), region, stale)
		overridden := self.overrider.overriddenRegion(self.cache.size)
		computeRegion := stale.Subtract(overridden)
		fullReplace := false
		if !computeRegion.IsEmpty() {
			if self.desc == nil {
				self.refillInputLocked(computeRegion)
			} else {
				var err error
				fullReplace, err = self.evaluateLocked(computeRegion)
				if err != nil {
					// the stale region stays stale
					return nil, err
				}
			}
		}
		if fullReplace {
			// the whole output is freshly computed
			stale = WholeRegion().resolve(self.cache.size)
		}
		self.cache.value = self.overrider.applyTo(self.cache.value, stale)
		self.cache.markValid(stale)
	}

	value := cloneValue(self.cache.value)
	if !self.effectiveCacheOn() {
		self.cache.invalidateAll()
	}
	return value, nil
}

func (self *Quib) ensureCacheLocked() {
	if self.cache.hasValue {
		return
	}
	if self.desc == nil {
		self.cache.setValue(cloneValue(self.baseValue))
		return
	}
	shape, isArray := self.resolveShapeLocked()
	if isArray {
		self.cache.setValue(Zeros(shape...))
	} else {
		self.cache.setValue(nil)
	}
}

// restore an input quib's own value at the stale indices
func (self *Quib) refillInputLocked(region Region) {
	base, baseIsArray := self.baseValue.(*NDArray)
	out, outIsArray := self.cache.value.(*NDArray)
	if baseIsArray && outIsArray && base.Size() == out.Size() {
		for _, index := range region.Indices(out.Size()) {
			out.SetAt(index, base.At(index))
		}
		return
	}
	self.cache.value = cloneValue(self.baseValue)
	self.cache.size = valueSize(self.cache.value)
}

// evaluateLocked recomputes computeRegion of this quib's output from
// its arguments. fullReplace reports that the whole output was
// computed, not just computeRegion. On error no cache content for
// computeRegion is modified.
func (self *Quib) evaluateLocked(computeRegion Region) (fullReplace bool, err error) {
	desc := self.desc
	outShape, outIsArray := self.resolveShapeLocked()

	// gather each argument, valid at the minimal needed sub-region
	args := make([]any, len(self.args))
	for i, arg := range self.args {
		var argShape []int
		var argIsArray bool
		if arg.Quib != nil {
			argShape, argIsArray = arg.Quib.resolveShapeLocked()
		} else {
			argShape, argIsArray = valueShape(arg.Value)
		}
		needed := neededArgRegion(desc, i, argShape, argIsArray, outShape, outIsArray, computeRegion)
		if arg.Quib != nil {
			value, err := arg.Quib.getValueLocked(needed)
			if err != nil {
				return false, err
			}
			args[i] = value
		} else {
			args[i] = arg.Value
		}
	}

	if desc.Relation == ShapeRelationElementwise && desc.Kernel != nil {
		if outIsArray {
			if self.kernelFillLocked(args, outShape, computeRegion) {
				return false, nil
			}
		} else {
			if kernelArgs, ok := self.kernelScalarArgs(args); ok {
				self.cache.value = desc.Kernel(kernelArgs)
				return true, nil
			}
		}
		// unresolvable shapes, fall through to the full call
	}

	if desc.Call == nil {
		return false, &ComputationError{
			Quib: self,
			Err:  errors.New("descriptor has no call function"),
		}
	}
	result, callErr := desc.Call(args)
	if callErr != nil {
		return false, &ComputationError{
			Quib: self,
			Err:  callErr,
		}
	}

	// merge the result into the cache at the stale indices when the
	// output layout is unchanged, otherwise replace the whole value
	out, outOk := self.cache.value.(*NDArray)
	res, resOk := result.(*NDArray)
	if desc.Relation != ShapeRelationOpaque && outOk && resOk && out.Size() == res.Size() {
		for _, index := range computeRegion.Indices(out.Size()) {
			out.SetAt(index, res.At(index))
		}
		return false, nil
	}
	self.cache.setValue(cloneValue(result))
	return true, nil
}

// per-element execution of an elementwise kernel over exactly the
// stale indices. Returns false when an argument cannot be resolved
// per element, in which case the caller falls back to the full call.
func (self *Quib) kernelFillLocked(args []any, outShape []int, computeRegion Region) bool {
	out, ok := self.cache.value.(*NDArray)
	if !ok {
		return false
	}
	dataArgs := []int{}
	for i := range args {
		if self.desc.IsDataArg(i) {
			dataArgs = append(dataArgs, i)
		}
	}
	kernelArgs := make([]float64, len(dataArgs))
	for _, outIndex := range computeRegion.Indices(out.Size()) {
		for k, i := range dataArgs {
			switch a := args[i].(type) {
			case *NDArray:
				argFlat, ok := broadcastFlatIndex(outShape, a.shape, outIndex)
				if !ok {
					return false
				}
				kernelArgs[k] = a.At(argFlat)
			default:
				f, ok := toFloat(args[i])
				if !ok {
					return false
				}
				kernelArgs[k] = f
			}
		}
		out.SetAt(outIndex, self.desc.Kernel(kernelArgs))
	}
	return true
}

func (self *Quib) kernelScalarArgs(args []any) ([]float64, bool) {
	kernelArgs := []float64{}
	for i := range args {
		if !self.desc.IsDataArg(i) {
			continue
		}
		f, ok := toFloat(args[i])
		if !ok {
			return nil, false
		}
		kernelArgs = append(kernelArgs, f)
	}
	return kernelArgs, true
}

func cloneValue(value any) any {
	if a, ok := value.(*NDArray); ok {
		return a.Clone()
	}
	return value
}
