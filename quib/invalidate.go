package quib

import (
	"github.com/golang/glog"
)

// Forward, lazy invalidation: marking staleness bitmaps downstream of
// a change without recomputing anything. Recomputation happens on the
// next GetValue.

// Invalidate marks region stale on this quib and propagates the
// affected regions through the reverse edges, breadth-first, until no
// further region changes are produced.
func (self *Quib) Invalidate(region Region) {
	self.graph.stateLock.Lock()
	events := self.invalidateLocked(region)
	self.graph.stateLock.Unlock()
	self.graph.fireChangeEvents(events)
}

type invalidationItem struct {
	quib   *Quib
	region Region
}

func (self *Quib) invalidateLocked(region Region) []*ChangeEvent {
	events := []*ChangeEvent{}
	queue := []invalidationItem{{quib: self, region: region}}
	for 0 < len(queue) {
		item := queue[0]
		queue = queue[1:]
		q := item.quib
		if item.region.IsEmpty() {
			continue
		}

		newlyStale := q.cache.invalidate(item.region)
		glog.V(2).Infof("[inv] %s region=%s newly=%s\n", q.label(), item.region, newlyStale)
		events = append(events, &ChangeEvent{
			Quib:   q,
			Region: item.region,
		})

		// when the quib retains a cache, only regions that were valid
		// can have produced valid data downstream. Quibs that do not
		// retain results propagate the full region.
		propagate := item.region
		if q.cache.hasValue && q.effectiveCacheOn() {
			propagate = newlyStale
		}
		if propagate.IsEmpty() {
			continue
		}

		parentShape, parentIsArray := q.resolveShapeLocked()
		for _, child := range q.children {
			if child.desc == nil {
				continue
			}
			childShape, childIsArray := child.resolveShapeLocked()
			affected := EmptyRegion()
			for argIndex, arg := range child.args {
				if arg.Quib != q {
					continue
				}
				affected = affected.Union(affectedOutRegion(
					child.desc,
					argIndex,
					parentShape,
					parentIsArray,
					childShape,
					childIsArray,
					propagate,
				))
			}
			if !affected.IsEmpty() {
				queue = append(queue, invalidationItem{
					quib:   child,
					region: affected,
				})
			}
		}
	}
	return events
}
