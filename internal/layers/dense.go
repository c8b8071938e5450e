package layers

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/arakhmati/unveiler/internal/activation"
	"github.com/arakhmati/unveiler/internal/tensor"
)

// Dense is a fully-connected layer: activation(x·W + b).
//
// Input shape:  [1, in_features] (row vector)
// Weight shape: [in_features, out_features] (source model layout)
// Bias shape:   [out_features]
// Output shape: [1, out_features]
//
// Dense defines no inverse operation.
type Dense struct {
	header

	weight *tensor.Tensor
	bias   *tensor.Tensor
	act    activation.Func

	inFeatures  int
	outFeatures int
}

func newDense(d Desc) (*Dense, error) {
	h, err := newHeader(d)
	if err != nil {
		return nil, err
	}

	if len(d.Weights) != 2 {
		return nil, fmt.Errorf("%w: dense layer %q expects 2 weight tensors (kernel, bias), got %d",
			ErrShapeMismatch, d.Name, len(d.Weights))
	}
	weight, bias := d.Weights[0], d.Weights[1]

	if len(weight.Shape()) != 2 {
		return nil, fmt.Errorf("%w: dense layer %q kernel must be 2D [in, out], got %v",
			ErrShapeMismatch, d.Name, weight.Shape())
	}
	in, out := weight.Shape()[0], weight.Shape()[1]

	if !d.InputShape.Equal(tensor.Shape{1, in}) {
		return nil, fmt.Errorf("%w: dense layer %q declares input %v, kernel consumes [1, %d]",
			ErrShapeMismatch, d.Name, d.InputShape, in)
	}
	if !bias.Shape().Equal(tensor.Shape{out}) {
		return nil, fmt.Errorf("%w: dense layer %q bias must have shape [%d], got %v",
			ErrShapeMismatch, d.Name, out, bias.Shape())
	}
	if !d.OutputShape.Equal(tensor.Shape{1, out}) {
		return nil, fmt.Errorf("%w: dense layer %q declares output %v, kernel produces [1, %d]",
			ErrShapeMismatch, d.Name, d.OutputShape, out)
	}

	act, err := activation.Resolve(d.Activation)
	if err != nil {
		return nil, fmt.Errorf("dense layer %q: %w", d.Name, err)
	}

	return &Dense{
		header:      h,
		weight:      weight.Clone(),
		bias:        bias.Clone(),
		act:         act,
		inFeatures:  in,
		outFeatures: out,
	}, nil
}

// Feedforward computes activation(x·W + b) into the layer's output
// buffer.
func (l *Dense) Feedforward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(tensor.Shape{1, l.inFeatures}) {
		return nil, fmt.Errorf("%w: dense layer %q expects input [1, %d], got %v",
			ErrShapeMismatch, l.name, l.inFeatures, x.Shape())
	}

	// y = W'x + b: seed the output with the bias and accumulate the
	// matrix-vector product on top (beta = 1).
	copy(l.output.Data(), l.bias.Data())
	blas32.Gemv(blas.Trans, 1,
		blas32.General{Rows: l.inFeatures, Cols: l.outFeatures, Stride: l.outFeatures, Data: l.weight.Data()},
		blas32.Vector{N: l.inFeatures, Inc: 1, Data: x.Data()},
		1,
		blas32.Vector{N: l.outFeatures, Inc: 1, Data: l.output.Data()},
	)

	return l.act(l.output), nil
}
