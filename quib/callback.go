package quib

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// makes a copy of the list on get so callbacks can add/remove
// while an event is being dispatched
type CallbackList[T any] struct {
	mutex          sync.Mutex
	nextCallbackId int
	callbacks      map[int]T
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{
		callbacks: map[int]T{},
	}
}

func (self *CallbackList[T]) Add(callback T) int {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbackId := self.nextCallbackId
	self.nextCallbackId += 1
	self.callbacks[callbackId] = callback
	return callbackId
}

func (self *CallbackList[T]) Remove(callbackId int) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	delete(self.callbacks, callbackId)
}

func (self *CallbackList[T]) Get() []T {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbackIds := maps.Keys(self.callbacks)
	slices.Sort(callbackIds)
	callbacks := []T{}
	for _, callbackId := range callbackIds {
		callbacks = append(callbacks, self.callbacks[callbackId])
	}
	return callbacks
}
