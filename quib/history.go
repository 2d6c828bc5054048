package quib

// Undo/redo as two linear stacks of invertible override operations.
// Each command holds the override table of one quib before and after
// the operation, by value. A new user operation clears the redo stack.

type overrideCommand struct {
	quib   *Quib
	before []OverrideRecord
	after  []OverrideRecord
}

// the region whose cached content can no longer be trusted after
// swapping between before and after
func (self *overrideCommand) affectedRegion() Region {
	return overrideRecordsRegion(self.before).Union(overrideRecordsRegion(self.after))
}

func (self *overrideCommand) applyLocked() []*ChangeEvent {
	self.quib.overrider.restore(self.after)
	return self.quib.invalidateLocked(self.affectedRegion())
}

func (self *overrideCommand) revertLocked() []*ChangeEvent {
	self.quib.overrider.restore(self.before)
	return self.quib.invalidateLocked(self.affectedRegion())
}

// one undoable step: a single user operation, or a composite of many
// (bulk override load)
type historyEntry struct {
	commands []*overrideCommand
}

type history struct {
	undoStack []*historyEntry
	redoStack []*historyEntry
}

func newHistory() *history {
	return &history{}
}

func (self *history) push(entry *historyEntry) {
	self.undoStack = append(self.undoStack, entry)
	self.redoStack = nil
}

func (self *Graph) CanUndo() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return 0 < len(self.history.undoStack)
}

func (self *Graph) CanRedo() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return 0 < len(self.history.redoStack)
}

// Undo reverts the most recent override operation. Undo on an empty
// stack is a no-op, not a failure.
func (self *Graph) Undo() bool {
	self.stateLock.Lock()
	if len(self.history.undoStack) == 0 {
		self.stateLock.Unlock()
		return false
	}
	entry := self.history.undoStack[len(self.history.undoStack)-1]
	self.history.undoStack = self.history.undoStack[:len(self.history.undoStack)-1]
	events := []*ChangeEvent{}
	for i := len(entry.commands) - 1; 0 <= i; i -= 1 {
		events = append(events, entry.commands[i].revertLocked()...)
	}
	self.history.redoStack = append(self.history.redoStack, entry)
	self.stateLock.Unlock()
	self.fireChangeEvents(events)
	return true
}

// Redo replays the most recently undone operation. Redo on an empty
// stack is a no-op.
func (self *Graph) Redo() bool {
	self.stateLock.Lock()
	if len(self.history.redoStack) == 0 {
		self.stateLock.Unlock()
		return false
	}
	entry := self.history.redoStack[len(self.history.redoStack)-1]
	self.history.redoStack = self.history.redoStack[:len(self.history.redoStack)-1]
	events := []*ChangeEvent{}
	for _, command := range entry.commands {
		events = append(events, command.applyLocked()...)
	}
	self.history.undoStack = append(self.history.undoStack, entry)
	self.stateLock.Unlock()
	self.fireChangeEvents(events)
	return true
}

func (self *Graph) ClearHistory() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.history.undoStack = nil
	self.history.redoStack = nil
}

// SetOverride records a user override for region, invalidates exactly
// that region downstream, and pushes an undo entry. The override is
// applied on top of the function output on every recomputation until
// cleared.
func (self *Quib) SetOverride(region Region, value any) {
	self.graph.stateLock.Lock()
	before := self.overrider.snapshot()
	self.overrider.add(OverrideRecord{
		Region: region,
		Value:  value,
	})
	after := self.overrider.snapshot()
	command := &overrideCommand{
		quib:   self,
		before: before,
		after:  after,
	}
	self.graph.history.push(&historyEntry{
		commands: []*overrideCommand{command},
	})
	events := self.invalidateLocked(region)
	self.graph.stateLock.Unlock()
	self.graph.fireChangeEvents(events)
}

// ClearOverride removes override records intersecting region and
// invalidates region. Clearing where nothing is overridden is a no-op
// and records no history entry.
func (self *Quib) ClearOverride(region Region) {
	self.graph.stateLock.Lock()
	before := self.overrider.snapshot()
	removed := self.overrider.clear(region)
	if len(removed) == 0 {
		self.graph.stateLock.Unlock()
		return
	}
	after := self.overrider.snapshot()
	command := &overrideCommand{
		quib:   self,
		before: before,
		after:  after,
	}
	self.graph.history.push(&historyEntry{
		commands: []*overrideCommand{command},
	})
	events := self.invalidateLocked(overrideRecordsRegion(removed).Union(region))
	self.graph.stateLock.Unlock()
	self.graph.fireChangeEvents(events)
}

// Overrides returns the quib's override records in insertion order.
func (self *Quib) Overrides() []OverrideRecord {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	return self.overrider.snapshot()
}

// OverrideMask is the region of this quib's output currently covered
// by overrides. Widget collaborators use it to mark dragged elements.
func (self *Quib) OverrideMask() Region {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	size := self.cache.size
	if !self.cache.hasValue {
		// not evaluated yet, size the mask from the output shape
		if shape, isArray := self.resolveShapeLocked(); isArray {
			size = shapeSize(shape)
		}
	}
	return self.overrider.overriddenRegion(size)
}
