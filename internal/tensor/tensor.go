package tensor

import (
	"fmt"
	"strings"
)

// Tensor is a dense, multi-dimensional array of float32 values in
// row-major (C-contiguous) memory order.
//
// Tensors are plain owned buffers: there is no view sharing, no
// copy-on-write and no reference counting. Every tensor exclusively
// owns its data slice; Clone performs a deep copy.
//
// Layer kernels allocate their tensors once at construction time and
// overwrite them in place on every call, which keeps repeated calls
// deterministic and allocation-free.
type Tensor struct {
	data    []float32
	shape   Shape
	strides []int
}

// New creates a zero-filled tensor with the given shape.
// Returns an error if the shape has non-positive dimensions.
func New(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &Tensor{
		data:    make([]float32, shape.NumElements()),
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
	}, nil
}

// Zeros creates a zero-filled tensor with the given shape.
// Panics on invalid shapes; use New when the shape comes from
// untrusted input.
func Zeros(shape Shape) *Tensor {
	t, err := New(shape)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return t
}

// FromSlice creates a tensor with the given shape, copying the provided
// data. The data length must equal the shape's element count.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}

	t := &Tensor{
		data:    make([]float32, len(data)),
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
	}
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's row-major memory strides.
func (t *Tensor) Strides() []int {
	return t.strides
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying float32 slice.
// WARNING: Direct access to underlying memory. Mutations are visible to
// every holder of the tensor; kernels overwrite their buffers in place,
// so callers must not retain the slice across calls they do not control.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at the given multi-dimensional index.
// Panics if the number of indices or any index is out of range.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.offset(indices)]
}

// Set writes the element at the given multi-dimensional index.
// Panics if the number of indices or any index is out of range.
func (t *Tensor) Set(v float32, indices ...int) {
	t.data[t.offset(indices)] = v
}

// offset converts a multi-dimensional index into a flat data offset.
func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices for shape %v, got %d",
			len(t.shape), t.shape, len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)",
				idx, i, t.shape[i]))
		}
		offset += idx * t.strides[i]
	}
	return offset
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := &Tensor{
		data:    make([]float32, len(t.data)),
		shape:   t.shape.Clone(),
		strides: append([]int(nil), t.strides...),
	}
	copy(clone.data, t.data)
	return clone
}

// Zero fills the tensor with zeros.
func (t *Tensor) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float32) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float32 {
	var sum float32
	for _, v := range t.data {
		sum += v
	}
	return sum
}

// String returns a compact human-readable representation.
func (t *Tensor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor(shape=%v, data=[", t.shape)
	const maxShown = 8
	for i, v := range t.data {
		if i == maxShown {
			sb.WriteString(", ...")
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteString("])")
	return sb.String()
}
