package quib

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// NDArray is a dense float64 n-dimensional array with row-major layout.
// A zero-dimensional NDArray holds a single element.
type NDArray struct {
	shape []int
	data  []float64
}

func NewNDArray(shape []int, data []float64) (*NDArray, error) {
	size := shapeSize(shape)
	if size != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, have %d", shape, size, len(data))
	}
	return &NDArray{
		shape: slices.Clone(shape),
		data:  slices.Clone(data),
	}, nil
}

func Zeros(shape ...int) *NDArray {
	return &NDArray{
		shape: slices.Clone(shape),
		data:  make([]float64, shapeSize(shape)),
	}
}

func FromSlice(values []float64) *NDArray {
	return &NDArray{
		shape: []int{len(values)},
		data:  slices.Clone(values),
	}
}

func Full(value float64, shape ...int) *NDArray {
	a := Zeros(shape...)
	for i := range a.data {
		a.data[i] = value
	}
	return a
}

func (self *NDArray) Shape() []int {
	return slices.Clone(self.shape)
}

func (self *NDArray) Ndim() int {
	return len(self.shape)
}

func (self *NDArray) Size() int {
	return len(self.data)
}

func (self *NDArray) At(flatIndex int) float64 {
	return self.data[flatIndex]
}

func (self *NDArray) SetAt(flatIndex int, value float64) {
	self.data[flatIndex] = value
}

func (self *NDArray) AtCoords(coords ...int) float64 {
	return self.data[coordsToFlat(self.shape, coords)]
}

func (self *NDArray) SetAtCoords(value float64, coords ...int) {
	self.data[coordsToFlat(self.shape, coords)] = value
}

func (self *NDArray) Clone() *NDArray {
	return &NDArray{
		shape: slices.Clone(self.shape),
		data:  slices.Clone(self.data),
	}
}

func (self *NDArray) Equal(other *NDArray) bool {
	if other == nil {
		return false
	}
	return slices.Equal(self.shape, other.shape) && slices.Equal(self.data, other.data)
}

// Data returns the backing flat slice. Mutating it mutates the array.
func (self *NDArray) Data() []float64 {
	return self.data
}

func (self *NDArray) String() string {
	values := []string{}
	for _, v := range self.data {
		values = append(values, fmt.Sprintf("%v", v))
	}
	return fmt.Sprintf("ndarray%v[%s]", self.shape, strings.Join(values, " "))
}

func shapeSize(shape []int) int {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return size
}

func flatToCoords(shape []int, flatIndex int) []int {
	coords := make([]int, len(shape))
	for i := len(shape) - 1; 0 <= i; i -= 1 {
		coords[i] = flatIndex % shape[i]
		flatIndex /= shape[i]
	}
	return coords
}

func coordsToFlat(shape []int, coords []int) int {
	flatIndex := 0
	for i := 0; i < len(shape); i += 1 {
		flatIndex = flatIndex*shape[i] + coords[i]
	}
	return flatIndex
}

// numpy-style broadcast of two shapes. ok is false when the shapes
// are incompatible.
func broadcastShapes(a []int, b []int) (shape []int, ok bool) {
	n := max(len(a), len(b))
	shape = make([]int, n)
	for i := 0; i < n; i += 1 {
		da := 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		db := 1
		if i < len(b) {
			db = b[len(b)-1-i]
		}
		switch {
		case da == db:
			shape[n-1-i] = da
		case da == 1:
			shape[n-1-i] = db
		case db == 1:
			shape[n-1-i] = da
		default:
			return nil, false
		}
	}
	return shape, true
}

// map a flat index in the broadcast output space to the flat index of
// the input it reads. ok is false when the input shape does not
// broadcast into the output shape.
func broadcastFlatIndex(outShape []int, inShape []int, outFlat int) (int, bool) {
	outCoords := flatToCoords(outShape, outFlat)
	inCoords := make([]int, len(inShape))
	offset := len(outShape) - len(inShape)
	if offset < 0 {
		return 0, false
	}
	for i := 0; i < len(inShape); i += 1 {
		c := outCoords[offset+i]
		switch {
		case inShape[i] == outShape[offset+i]:
			inCoords[i] = c
		case inShape[i] == 1:
			inCoords[i] = 0
		default:
			return 0, false
		}
	}
	return coordsToFlat(inShape, inCoords), true
}

// shape of a value for region bookkeeping. Non-array values have no
// shape and a unit index space.
func valueShape(value any) ([]int, bool) {
	if a, ok := value.(*NDArray); ok {
		return a.shape, true
	}
	return nil, false
}

func valueSize(value any) int {
	if a, ok := value.(*NDArray); ok {
		return a.Size()
	}
	return 1
}
