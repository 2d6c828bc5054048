package quib

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// process-wide catalogue of quiby functions, keyed by function name.
// Initialized once with the builtins and read-only afterward except
// for explicit user registrations.
var quibyFuncs = map[string]*FuncDescriptor{}
var quibyFuncsLock sync.Mutex

func RegisterQuibyFunc(desc *FuncDescriptor) {
	quibyFuncsLock.Lock()
	defer quibyFuncsLock.Unlock()

	quibyFuncs[desc.Name] = desc
}

func LookupQuibyFunc(name string) (*FuncDescriptor, bool) {
	quibyFuncsLock.Lock()
	defer quibyFuncsLock.Unlock()

	desc, ok := quibyFuncs[name]
	return desc, ok
}

func IsQuiby(name string) bool {
	quibyFuncsLock.Lock()
	defer quibyFuncsLock.Unlock()

	_, ok := quibyFuncs[name]
	return ok
}

func QuibyFuncNames() []string {
	quibyFuncsLock.Lock()
	defer quibyFuncsLock.Unlock()

	names := maps.Keys(quibyFuncs)
	slices.Sort(names)
	return names
}
