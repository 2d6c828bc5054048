package quib

// cache holds a quib's previously computed value together with a
// region-validity mask over the value's flat index space. Array values
// track validity per element, everything else uses a single slot.
// The value stored for any valid index already has overrides applied.
type cache struct {
	value    any
	size     int
	valid    Region
	hasValue bool
}

func newCache() *cache {
	return &cache{
		size:  1,
		valid: EmptyRegion(),
	}
}

func (self *cache) setValue(value any) {
	self.value = value
	self.size = valueSize(value)
	self.valid = EmptyRegion()
	self.hasValue = true
}

func (self *cache) validFor(region Region) bool {
	if !self.hasValue {
		return false
	}
	return self.valid.Covers(region, self.size)
}

// the part of region not currently valid
func (self *cache) staleIn(region Region) Region {
	resolved := region.resolve(self.size)
	if !self.hasValue {
		return resolved
	}
	return resolved.Subtract(self.valid)
}

func (self *cache) markValid(region Region) {
	self.valid = self.valid.Union(region.resolve(self.size))
}

// returns the newly stale part, the part that was valid before
func (self *cache) invalidate(region Region) Region {
	if !self.hasValue {
		return EmptyRegion()
	}
	resolved := region.resolve(self.size)
	newlyStale := resolved.Intersect(self.valid)
	self.valid = self.valid.Subtract(resolved)
	return newlyStale
}

func (self *cache) invalidateAll() {
	self.valid = EmptyRegion()
}
