// Package layers implements the per-layer forward and inverse numeric
// kernels of the visualization engine: dense, 2D convolution, 2D max
// pooling, flatten, batch normalization and dropout.
//
// Every kernel owns a pre-allocated output buffer sized at construction
// time from its layer description; Feedforward overwrites that buffer
// in place and returns it. Invertible kernels (Conv2D, MaxPooling2D)
// additionally implement Deconvolve, which projects an output-space
// tensor back into the layer's input space for visualization. The
// inverse is guided-backprop style, not a true mathematical inverse.
package layers

import (
	"fmt"

	"github.com/arakhmati/unveiler/internal/tensor"
)

// Kind is the category tag attached to every constructed layer.
// It carries no behavior; the network driver branches on it to select a
// deconvolution strategy.
type Kind int

// Layer categories.
const (
	KindOther Kind = iota
	KindConv
	KindMaxPool
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case KindConv:
		return "conv"
	case KindMaxPool:
		return "maxpool"
	default:
		return "other"
	}
}

// Layer is the contract every kernel satisfies.
//
// Feedforward accepts an input tensor matching the layer's declared
// input shape and returns the layer's owned output buffer, overwritten
// in place. The returned tensor is reused across calls; callers must
// not alias it across calls they do not control.
type Layer interface {
	Name() string
	Output() *tensor.Tensor
	OutputShape() tensor.Shape
	Feedforward(x *tensor.Tensor) (*tensor.Tensor, error)
}

// Deconvolver is the capability interface implemented by layers that
// support the inverse operation (Conv2D and MaxPooling2D).
//
// Both arguments are optional: a nil x starts the projection from the
// layer's own last forward output, and a nil w uses the layer's own
// weights (where the layer has any).
type Deconvolver interface {
	Deconvolve(x, w *tensor.Tensor) (*tensor.Tensor, error)
}

// Deconvolve projects x back through l. Layers without the inverse
// capability fail with ErrUnsupportedOperation.
func Deconvolve(l Layer, x, w *tensor.Tensor) (*tensor.Tensor, error) {
	d, ok := l.(Deconvolver)
	if !ok {
		return nil, fmt.Errorf("%w: layer %q does not support deconvolution",
			ErrUnsupportedOperation, l.Name())
	}
	return d.Deconvolve(x, w)
}

// header is the state shared by every kernel: the layer's name and its
// pre-allocated output buffer.
type header struct {
	name   string
	output *tensor.Tensor
}

// newHeader allocates the zero-filled output buffer declared by d.
func newHeader(d Desc) (header, error) {
	output, err := tensor.New(d.OutputShape)
	if err != nil {
		return header{}, fmt.Errorf("layer %q: output shape: %w", d.Name, err)
	}
	return header{name: d.Name, output: output}, nil
}

// Name returns the layer's name as declared in the source model.
func (h *header) Name() string {
	return h.name
}

// Output returns the layer's owned output buffer. Its contents are the
// result of the most recent Feedforward call.
func (h *header) Output() *tensor.Tensor {
	return h.output
}

// OutputShape returns the layer's declared output shape.
func (h *header) OutputShape() tensor.Shape {
	return h.output.Shape()
}

// New constructs the kernel matching the layer description and returns
// it with its category tag.
//
// An input placeholder description produces no kernel: New returns
// (nil, KindOther, nil) and the caller skips it. Descriptions outside
// the supported set fail with ErrUnsupportedLayerKind naming the
// offending type.
func New(d Desc) (Layer, Kind, error) {
	switch d.Kind {
	case DescInput:
		return nil, KindOther, nil
	case DescDense:
		l, err := newDense(d)
		if err != nil {
			return nil, KindOther, err
		}
		return l, KindOther, nil
	case DescConv2D:
		l, err := newConv2D(d)
		if err != nil {
			return nil, KindConv, err
		}
		return l, KindConv, nil
	case DescMaxPooling2D:
		l, err := newMaxPooling2D(d)
		if err != nil {
			return nil, KindMaxPool, err
		}
		return l, KindMaxPool, nil
	case DescFlatten:
		l, err := newFlatten(d)
		if err != nil {
			return nil, KindOther, err
		}
		return l, KindOther, nil
	case DescBatchNormalization:
		l, err := newBatchNormalization(d)
		if err != nil {
			return nil, KindOther, err
		}
		return l, KindOther, nil
	case DescDropout:
		l, err := newDropout(d)
		if err != nil {
			return nil, KindOther, err
		}
		return l, KindOther, nil
	default:
		typeName := d.TypeName
		if typeName == "" {
			typeName = fmt.Sprintf("kind %d", d.Kind)
		}
		return nil, KindOther, fmt.Errorf("%w: %s", ErrUnsupportedLayerKind, typeName)
	}
}
