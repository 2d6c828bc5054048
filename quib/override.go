package quib

import (
	"golang.org/x/exp/slices"
)

// OverrideRecord is one user-supplied override on a quib: a value for
// the whole output or for an index region of it. For array regions the
// value is a float64 fill, for whole overrides it is a replacement
// value of the quib's value kind.
type OverrideRecord struct {
	Region Region
	Value  any
}

// overrider gathers the override records of one quib in insertion
// order. Overlapping records use last-write-wins by insertion order.
// Records are applied after function evaluation and before the cache
// region is considered valid.
type overrider struct {
	records []OverrideRecord
}

func newOverrider() *overrider {
	return &overrider{}
}

// re-adding at an identical region moves the record to the end so the
// newest write wins
func (self *overrider) add(record OverrideRecord) {
	kept := []OverrideRecord{}
	for _, existing := range self.records {
		if !existing.Region.Equal(record.Region) {
			kept = append(kept, existing)
		}
	}
	self.records = append(kept, record)
}

// removes records intersecting region, returns what was removed
func (self *overrider) clear(region Region) []OverrideRecord {
	if region.IsEmpty() {
		return nil
	}
	kept := []OverrideRecord{}
	removed := []OverrideRecord{}
	for _, existing := range self.records {
		intersects := false
		if region.IsWhole() || existing.Region.IsWhole() {
			intersects = true
		} else {
			intersects = !existing.Region.Intersect(region).IsEmpty()
		}
		if intersects {
			removed = append(removed, existing)
		} else {
			kept = append(kept, existing)
		}
	}
	if 0 < len(removed) {
		self.records = kept
	}
	return removed
}

func (self *overrider) isEmpty() bool {
	return len(self.records) == 0
}

func (self *overrider) snapshot() []OverrideRecord {
	return slices.Clone(self.records)
}

func (self *overrider) restore(records []OverrideRecord) {
	self.records = slices.Clone(records)
}

// union of all overridden indices
func (self *overrider) overriddenRegion(size int) Region {
	region := EmptyRegion()
	for _, record := range self.records {
		region = region.Union(record.Region.resolve(size))
	}
	return region
}

// union of record regions, for invalidation after table swaps
func overrideRecordsRegion(records []OverrideRecord) Region {
	region := EmptyRegion()
	for _, record := range records {
		if record.Region.IsWhole() {
			return WholeRegion()
		}
		region = region.Union(record.Region)
	}
	return region
}

// applyTo writes the overrides onto value at the indices of region,
// in insertion order. value is mutated in place for arrays; whole
// replacements return the override value.
func (self *overrider) applyTo(value any, region Region) any {
	for _, record := range self.records {
		value = applyOverrideRecord(value, record, region)
	}
	return value
}

func applyOverrideRecord(value any, record OverrideRecord, region Region) any {
	array, isArray := value.(*NDArray)
	if !isArray {
		// scalar or opaque value: any override replaces it
		return record.Value
	}
	size := array.Size()
	target := record.Region.resolve(size).Intersect(region.resolve(size))
	if target.IsEmpty() {
		return value
	}
	switch v := record.Value.(type) {
	case *NDArray:
		// whole-array replacement, element by element so only the
		// requested region is touched
		if v.Size() != size {
			return v.Clone()
		}
		for _, index := range target.Indices(size) {
			array.SetAt(index, v.At(index))
		}
	default:
		fill, ok := toFloat(record.Value)
		if !ok {
			return value
		}
		for _, index := range target.Indices(size) {
			array.SetAt(index, fill)
		}
	}
	return value
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case *NDArray:
		if v.Size() == 1 {
			return v.At(0), true
		}
		return 0, false
	default:
		return 0, false
	}
}
