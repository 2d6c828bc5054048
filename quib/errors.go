package quib

import (
	"fmt"
)

// GraphConstructionError is returned when constructing a quib whose
// argument list would introduce a dependency cycle. The graph is left
// unmodified.
type GraphConstructionError struct {
	FuncName string
	Message  string
}

func (self *GraphConstructionError) Error() string {
	return fmt.Sprintf("graph construction (%s): %s", self.FuncName, self.Message)
}

// InversionError is returned when an assignment on a function quib
// cannot be translated into an override on an upstream source. No
// override state is modified.
type InversionError struct {
	Quib    *Quib
	Message string
}

func (self *InversionError) Error() string {
	return fmt.Sprintf("inverting assignment on %s: %s", self.Quib.Label(), self.Message)
}

// ComputationError wraps an error raised by a wrapped function during
// evaluation. The stale region of the originating quib stays stale.
type ComputationError struct {
	Quib *Quib
	Err  error
}

func (self *ComputationError) Error() string {
	return fmt.Sprintf("computing %s: %s", self.Quib.Label(), self.Err)
}

func (self *ComputationError) Unwrap() error {
	return self.Err
}
