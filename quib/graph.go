package quib

import (
	"sync"
)

// CacheMode controls whether a quib retains computed results.
type CacheMode int

const (
	// cache unless the graph default says otherwise
	CacheModeAuto CacheMode = iota
	CacheModeOn
	CacheModeOff
)

func DefaultGraphSettings() *GraphSettings {
	return &GraphSettings{
		CacheMode: CacheModeOn,
	}
}

type GraphSettings struct {
	// default cache behavior for quibs in CacheModeAuto
	CacheMode CacheMode
}

// ChangeEvent is fired after a cache or override mutation on a quib,
// so a view attached to it can re-render.
type ChangeEvent struct {
	Quib   *Quib
	Region Region
}

type ChangeEventFunction = func(event *ChangeEvent)

// Graph owns a set of quib nodes, the undo/redo history of override
// operations on them, and the change notification hooks. All override
// and evaluate operations on quibs of one graph serialize behind the
// graph's state lock. Evaluation recursion stays inside one lock hold,
// so a graphics handler firing an override mid-recomputation queues
// behind it.
type Graph struct {
	settings *GraphSettings

	stateLock sync.Mutex

	// creation order. Stable enumeration order for persistence.
	quibs []*Quib

	history *history

	changeCallbacks *CallbackList[ChangeEventFunction]
}

func NewGraph() *Graph {
	return NewGraphWithSettings(DefaultGraphSettings())
}

func NewGraphWithSettings(settings *GraphSettings) *Graph {
	return &Graph{
		settings:        settings,
		history:         newHistory(),
		changeCallbacks: NewCallbackList[ChangeEventFunction](),
	}
}

func (self *Graph) AddChangeCallback(changeCallback ChangeEventFunction) int {
	return self.changeCallbacks.Add(changeCallback)
}

func (self *Graph) RemoveChangeCallback(callbackId int) {
	self.changeCallbacks.Remove(callbackId)
}

// Quibs returns all quibs in creation order.
func (self *Graph) Quibs() []*Quib {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	out := make([]*Quib, len(self.quibs))
	copy(out, self.quibs)
	return out
}

// QuibByName finds a quib by assigned name, falling back to the id
// string. The first match in creation order wins.
func (self *Graph) QuibByName(name string) (*Quib, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	for _, q := range self.quibs {
		if q.assignedName == name {
			return q, true
		}
	}
	for _, q := range self.quibs {
		if q.id.String() == name {
			return q, true
		}
	}
	return nil, false
}

// register runs the construction-time acyclicity check and attaches
// reverse edges. On error the graph is left unmodified.
func (self *Graph) register(q *Quib) error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	for _, arg := range q.args {
		if arg.Quib == nil {
			continue
		}
		if arg.Quib.graph != self {
			return &GraphConstructionError{
				FuncName: q.FuncName(),
				Message:  "argument quib belongs to a different graph",
			}
		}
	}
	if dependsOn(q.args, q) {
		return &GraphConstructionError{
			FuncName: q.FuncName(),
			Message:  "argument list would create a cycle",
		}
	}
	self.quibs = append(self.quibs, q)
	for _, arg := range q.args {
		if arg.Quib != nil {
			arg.Quib.children = append(arg.Quib.children, q)
		}
	}
	return nil
}

// whether any quib in args transitively depends on target
func dependsOn(args []Arg, target *Quib) bool {
	visited := map[*Quib]bool{}
	stack := []*Quib{}
	for _, arg := range args {
		if arg.Quib != nil {
			stack = append(stack, arg.Quib)
		}
	}
	for 0 < len(stack) {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if q == target {
			return true
		}
		if visited[q] {
			continue
		}
		visited[q] = true
		for _, arg := range q.args {
			if arg.Quib != nil {
				stack = append(stack, arg.Quib)
			}
		}
	}
	return false
}

// collected while holding the state lock, fired after it is released
// so a callback can call back into the graph
func (self *Graph) fireChangeEvents(events []*ChangeEvent) {
	if len(events) == 0 {
		return
	}
	callbacks := self.changeCallbacks.Get()
	for _, event := range events {
		for _, callback := range callbacks {
			callback(event)
		}
	}
}
