// Package quib builds computation graphs implicitly: expressions over
// quib values produce new quibs representing the deferred application
// of a function instead of a computed result. Values are computed
// lazily, cached per region, and invalidated at element granularity
// when an upstream input changes or is overridden. Overrides persist
// across recomputation and participate in linear undo/redo.
package quib

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"golang.org/x/exp/slices"
)

// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func (self Id) String() string {
	return ulid.ULID(self).String()
}

// Arg is one argument of a quib: either a reference to another quib or
// a literal value.
type Arg struct {
	Quib  *Quib
	Value any
}

func QuibArg(q *Quib) Arg {
	return Arg{Quib: q}
}

func ValueArg(value any) Arg {
	return Arg{Value: value}
}

// Quib is one vertex of the computation graph: a deferred application
// of a function to argument quibs and literals. Identity is the node
// itself, never the value. The argument list is immutable after
// construction; changing a computation means constructing a new quib.
type Quib struct {
	id    Id
	graph *Graph
	desc  *FuncDescriptor
	args  []Arg

	// input quibs only
	baseValue any

	// quibs whose argument lists reference this quib
	children []*Quib

	cache     *cache
	overrider *overrider

	assignedName string
	cacheMode    CacheMode

	// cached output shape metadata, resolved on first evaluation
	shapeResolved bool
	outShape      []int
	outIsArray    bool
}

// NewQuib constructs a function quib. Construction fails fast with
// GraphConstructionError when the argument list would create a cycle;
// no partial node is registered.
func NewQuib(graph *Graph, desc *FuncDescriptor, args ...Arg) (*Quib, error) {
	q := &Quib{
		id:        NewId(),
		graph:     graph,
		desc:      desc,
		args:      slices.Clone(args),
		cache:     newCache(),
		overrider: newOverrider(),
	}
	if err := graph.register(q); err != nil {
		return nil, err
	}
	return q, nil
}

// NewInput wraps a plain value as a source node. Editing the value is
// done through overrides so the edit participates in undo/redo.
func NewInput(graph *Graph, value any) *Quib {
	q := &Quib{
		id:        NewId(),
		graph:     graph,
		baseValue: value,
		cache:     newCache(),
		overrider: newOverrider(),
	}
	// no args, no cycle possible
	graph.register(q)
	return q
}

// Call constructs a quib for a registered quiby function by name.
func Call(graph *Graph, funcName string, args ...Arg) (*Quib, error) {
	desc, ok := LookupQuibyFunc(funcName)
	if !ok {
		return nil, &GraphConstructionError{
			FuncName: funcName,
			Message:  "not a quiby function",
		}
	}
	return NewQuib(graph, desc, args...)
}

func (self *Quib) Id() Id {
	return self.id
}

func (self *Quib) Graph() *Graph {
	return self.graph
}

func (self *Quib) IsInput() bool {
	return self.desc == nil
}

func (self *Quib) FuncName() string {
	if self.desc == nil {
		return "iquib"
	}
	return self.desc.Name
}

func (self *Quib) Args() []Arg {
	return slices.Clone(self.args)
}

func (self *Quib) Parents() []*Quib {
	parents := []*Quib{}
	for _, arg := range self.args {
		if arg.Quib != nil && !slices.Contains(parents, arg.Quib) {
			parents = append(parents, arg.Quib)
		}
	}
	return parents
}

func (self *Quib) Children() []*Quib {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	return slices.Clone(self.children)
}

func (self *Quib) Ancestors() []*Quib {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	ancestors := []*Quib{}
	visited := map[*Quib]bool{}
	stack := slices.Clone(self.Parents())
	for 0 < len(stack) {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[q] {
			continue
		}
		visited[q] = true
		ancestors = append(ancestors, q)
		stack = append(stack, q.Parents()...)
	}
	return ancestors
}

func (self *Quib) SetName(name string) {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	self.assignedName = name
}

func (self *Quib) Name() string {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	return self.name()
}

func (self *Quib) name() string {
	if self.assignedName != "" {
		return self.assignedName
	}
	return self.id.String()
}

func (self *Quib) SetCacheMode(cacheMode CacheMode) {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	self.cacheMode = cacheMode
}

func (self *Quib) effectiveCacheOn() bool {
	switch self.cacheMode {
	case CacheModeOn:
		return true
	case CacheModeOff:
		return false
	default:
		return self.graph.settings.CacheMode != CacheModeOff
	}
}

// Label is a human-readable description for annotating UI elements:
// the assigned name when set, otherwise a functional representation
// like sin(x).
func (self *Quib) Label() string {
	self.graph.stateLock.Lock()
	defer self.graph.stateLock.Unlock()

	return self.label()
}

func (self *Quib) label() string {
	if self.assignedName != "" {
		return self.assignedName
	}
	return self.representation(2)
}

func (self *Quib) representation(depth int) string {
	if self.assignedName != "" {
		return self.assignedName
	}
	if self.desc == nil {
		return fmt.Sprintf("iquib(%v)", self.baseValue)
	}
	if depth <= 0 {
		return fmt.Sprintf("%s(...)", self.desc.Name)
	}
	argLabels := []string{}
	for _, arg := range self.args {
		if arg.Quib != nil {
			argLabels = append(argLabels, arg.Quib.representation(depth-1))
		} else {
			argLabels = append(argLabels, fmt.Sprintf("%v", arg.Value))
		}
	}
	label := self.desc.Name + "("
	for i, argLabel := range argLabels {
		if 0 < i {
			label += ", "
		}
		label += argLabel
	}
	return label + ")"
}

func (self *Quib) String() string {
	return self.Label()
}

// output shape metadata without forcing evaluation. ok is false for
// non-array outputs (scalar or opaque values).
func (self *Quib) resolveShapeLocked() ([]int, bool) {
	if self.shapeResolved {
		return self.outShape, self.outIsArray
	}
	shape, isArray := self.deriveShapeLocked()
	self.shapeResolved = true
	self.outShape = shape
	self.outIsArray = isArray
	return shape, isArray
}

func (self *Quib) deriveShapeLocked() ([]int, bool) {
	if self.desc == nil {
		shape, ok := valueShape(self.baseValue)
		return shape, ok
	}
	if self.desc.OutShape == nil {
		return nil, false
	}
	argShapes := [][]int{}
	for i, arg := range self.args {
		if !self.desc.IsDataArg(i) {
			argShapes = append(argShapes, nil)
			continue
		}
		if arg.Quib != nil {
			shape, ok := arg.Quib.resolveShapeLocked()
			if !ok {
				shape = nil
			}
			argShapes = append(argShapes, shape)
		} else {
			shape, ok := valueShape(arg.Value)
			if !ok {
				shape = nil
			}
			argShapes = append(argShapes, shape)
		}
	}
	return self.desc.OutShape(argShapes)
}
