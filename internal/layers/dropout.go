package layers

import (
	"fmt"

	"github.com/arakhmati/unveiler/internal/tensor"
)

// Dropout is an identity passthrough. Stochastic masking only happens
// during training; at inference time the layer copies its input
// unchanged. No inverse operation is defined.
type Dropout struct {
	header

	inShape tensor.Shape
}

func newDropout(d Desc) (*Dropout, error) {
	h, err := newHeader(d)
	if err != nil {
		return nil, err
	}

	if !d.OutputShape.Equal(d.InputShape) {
		return nil, fmt.Errorf("%w: dropout layer %q declares output %v for input %v",
			ErrShapeMismatch, d.Name, d.OutputShape, d.InputShape)
	}

	return &Dropout{header: h, inShape: d.InputShape.Clone()}, nil
}

// Feedforward copies x into the output buffer unchanged.
func (l *Dropout) Feedforward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(l.inShape) {
		return nil, fmt.Errorf("%w: dropout layer %q expects input %v, got %v",
			ErrShapeMismatch, l.name, l.inShape, x.Shape())
	}

	copy(l.output.Data(), x.Data())
	return l.output, nil
}
