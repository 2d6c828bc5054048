package quib

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// A Region describes a subset of a value's flat index space.
// It is either the whole value, nothing, or a coalesced set of
// half-open index intervals. Regions are values and never mutated
// in place.
type Region struct {
	whole bool
	spans []span
}

// half-open [start, end)
type span struct {
	start int
	end   int
}

func WholeRegion() Region {
	return Region{whole: true}
}

func EmptyRegion() Region {
	return Region{}
}

func SpanRegion(start int, end int) Region {
	if end <= start {
		return Region{}
	}
	return Region{spans: []span{{start: start, end: end}}}
}

func IndexRegion(indices ...int) Region {
	if len(indices) == 0 {
		return Region{}
	}
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	spans := []span{}
	current := span{start: sorted[0], end: sorted[0] + 1}
	for _, index := range sorted[1:] {
		if index < current.end {
			// duplicate
			continue
		}
		if index == current.end {
			current.end = index + 1
		} else {
			spans = append(spans, current)
			current = span{start: index, end: index + 1}
		}
	}
	spans = append(spans, current)
	return Region{spans: spans}
}

func (self Region) IsWhole() bool {
	return self.whole
}

func (self Region) IsEmpty() bool {
	return !self.whole && len(self.spans) == 0
}

// resolve "whole" against a concrete index space size
func (self Region) resolve(size int) Region {
	if self.whole {
		return SpanRegion(0, size)
	}
	// clip to [0, size)
	spans := []span{}
	for _, s := range self.spans {
		start := max(s.start, 0)
		end := min(s.end, size)
		if start < end {
			spans = append(spans, span{start: start, end: end})
		}
	}
	return Region{spans: spans}
}

func (self Region) Count(size int) int {
	resolved := self.resolve(size)
	count := 0
	for _, s := range resolved.spans {
		count += s.end - s.start
	}
	return count
}

func (self Region) Indices(size int) []int {
	resolved := self.resolve(size)
	indices := []int{}
	for _, s := range resolved.spans {
		for i := s.start; i < s.end; i += 1 {
			indices = append(indices, i)
		}
	}
	return indices
}

func (self Region) Contains(index int) bool {
	if self.whole {
		return true
	}
	for _, s := range self.spans {
		if s.start <= index && index < s.end {
			return true
		}
	}
	return false
}

// whether every index of `other` (resolved against size) is in self
func (self Region) Covers(other Region, size int) bool {
	if self.whole {
		return true
	}
	remainder := other.resolve(size).Subtract(self)
	return remainder.IsEmpty()
}

func (self Region) Union(other Region) Region {
	if self.whole || other.whole {
		return WholeRegion()
	}
	merged := append(slices.Clone(self.spans), other.spans...)
	slices.SortFunc(merged, func(a span, b span) int {
		return a.start - b.start
	})
	spans := []span{}
	for _, s := range merged {
		if 0 < len(spans) && s.start <= spans[len(spans)-1].end {
			if spans[len(spans)-1].end < s.end {
				spans[len(spans)-1].end = s.end
			}
		} else {
			spans = append(spans, s)
		}
	}
	return Region{spans: spans}
}

func (self Region) Intersect(other Region) Region {
	if self.whole {
		return other
	}
	if other.whole {
		return self
	}
	spans := []span{}
	i := 0
	j := 0
	for i < len(self.spans) && j < len(other.spans) {
		a := self.spans[i]
		b := other.spans[j]
		start := max(a.start, b.start)
		end := min(a.end, b.end)
		if start < end {
			spans = append(spans, span{start: start, end: end})
		}
		if a.end < b.end {
			i += 1
		} else {
			j += 1
		}
	}
	return Region{spans: spans}
}

// self minus other. Whole minus anything non-whole cannot be represented
// without a size, so callers subtract resolved regions.
func (self Region) Subtract(other Region) Region {
	if other.whole {
		return Region{}
	}
	if other.IsEmpty() {
		return self
	}
	if self.whole {
		// callers resolve first; keep total by over-approximating
		return self
	}
	spans := []span{}
	for _, s := range self.spans {
		remaining := []span{s}
		for _, o := range other.spans {
			next := []span{}
			for _, r := range remaining {
				if o.end <= r.start || r.end <= o.start {
					next = append(next, r)
					continue
				}
				if r.start < o.start {
					next = append(next, span{start: r.start, end: o.start})
				}
				if o.end < r.end {
					next = append(next, span{start: o.end, end: r.end})
				}
			}
			remaining = next
		}
		spans = append(spans, remaining...)
	}
	return Region{spans: spans}
}

func (self Region) Equal(other Region) bool {
	if self.whole != other.whole {
		return false
	}
	return slices.Equal(self.spans, other.spans)
}

// stable span pairs for serialization
func (self Region) Spans() [][2]int {
	out := [][2]int{}
	for _, s := range self.spans {
		out = append(out, [2]int{s.start, s.end})
	}
	return out
}

func RegionFromSpans(spans [][2]int) Region {
	region := Region{}
	for _, s := range spans {
		region = region.Union(SpanRegion(s[0], s[1]))
	}
	return region
}

func (self Region) String() string {
	if self.whole {
		return "whole"
	}
	if len(self.spans) == 0 {
		return "none"
	}
	parts := []string{}
	for _, s := range self.spans {
		if s.end == s.start+1 {
			parts = append(parts, fmt.Sprintf("%d", s.start))
		} else {
			parts = append(parts, fmt.Sprintf("%d:%d", s.start, s.end))
		}
	}
	return strings.Join(parts, ",")
}
