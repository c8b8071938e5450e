package layers

import (
	"fmt"

	"github.com/arakhmati/unveiler/internal/tensor"
)

// Flatten reshapes its input into a row vector [1, n], preserving
// row-major element order. No inverse operation is defined.
type Flatten struct {
	header

	inShape tensor.Shape
}

func newFlatten(d Desc) (*Flatten, error) {
	h, err := newHeader(d)
	if err != nil {
		return nil, err
	}

	n := d.InputShape.NumElements()
	if !d.OutputShape.Equal(tensor.Shape{1, n}) {
		return nil, fmt.Errorf("%w: flatten layer %q declares output %v for input %v (want [1, %d])",
			ErrShapeMismatch, d.Name, d.OutputShape, d.InputShape, n)
	}

	return &Flatten{header: h, inShape: d.InputShape.Clone()}, nil
}

// Feedforward copies x into the row-vector output buffer. Row-major
// order means the copy is a straight memmove.
func (l *Flatten) Feedforward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(l.inShape) {
		return nil, fmt.Errorf("%w: flatten layer %q expects input %v, got %v",
			ErrShapeMismatch, l.name, l.inShape, x.Shape())
	}

	copy(l.output.Data(), x.Data())
	return l.output, nil
}
