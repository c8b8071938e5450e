package layers

import (
	"fmt"
	"math"

	"github.com/arakhmati/unveiler/internal/tensor"
)

// BatchNormalization applies per-channel affine normalization using the
// source model's stored running statistics:
//
//	out[i] = gamma[i] * (x[i] - mean[i]) / sqrt(variance[i] + epsilon) + beta[i]
//
// applied elementwise over each axis-0 slice. This is inference-mode
// normalization; no statistics are updated. No inverse operation is
// defined.
type BatchNormalization struct {
	header

	gamma    *tensor.Tensor
	beta     *tensor.Tensor
	mean     *tensor.Tensor
	variance *tensor.Tensor
	epsilon  float32

	inShape tensor.Shape
}

func newBatchNormalization(d Desc) (*BatchNormalization, error) {
	h, err := newHeader(d)
	if err != nil {
		return nil, err
	}

	if len(d.InputShape) == 0 {
		return nil, fmt.Errorf("%w: batchnorm layer %q has empty input shape",
			ErrShapeMismatch, d.Name)
	}
	if !d.OutputShape.Equal(d.InputShape) {
		return nil, fmt.Errorf("%w: batchnorm layer %q declares output %v for input %v",
			ErrShapeMismatch, d.Name, d.OutputShape, d.InputShape)
	}
	if len(d.Weights) != 4 {
		return nil, fmt.Errorf("%w: batchnorm layer %q expects 4 weight tensors (gamma, beta, mean, variance), got %d",
			ErrShapeMismatch, d.Name, len(d.Weights))
	}

	channels := d.InputShape[0]
	names := []string{"gamma", "beta", "mean", "variance"}
	for i, w := range d.Weights {
		if !w.Shape().Equal(tensor.Shape{channels}) {
			return nil, fmt.Errorf("%w: batchnorm layer %q %s must have shape [%d], got %v",
				ErrShapeMismatch, d.Name, names[i], channels, w.Shape())
		}
	}

	return &BatchNormalization{
		header:   h,
		gamma:    d.Weights[0].Clone(),
		beta:     d.Weights[1].Clone(),
		mean:     d.Weights[2].Clone(),
		variance: d.Weights[3].Clone(),
		epsilon:  d.Epsilon,
		inShape:  d.InputShape.Clone(),
	}, nil
}

// Feedforward normalizes each channel slice of x into the layer's
// output buffer.
func (l *BatchNormalization) Feedforward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(l.inShape) {
		return nil, fmt.Errorf("%w: batchnorm layer %q expects input %v, got %v",
			ErrShapeMismatch, l.name, l.inShape, x.Shape())
	}

	channels := l.inShape[0]
	sliceSize := l.inShape.NumElements() / channels

	inData := x.Data()
	outData := l.output.Data()

	for i := 0; i < channels; i++ {
		invStd := float32(1 / math.Sqrt(float64(l.variance.Data()[i]+l.epsilon)))
		g := l.gamma.Data()[i]
		b := l.beta.Data()[i]
		m := l.mean.Data()[i]

		src := inData[i*sliceSize : (i+1)*sliceSize]
		dst := outData[i*sliceSize : (i+1)*sliceSize]
		for s, v := range src {
			dst[s] = g*(v-m)*invStd + b
		}
	}

	return l.output, nil
}
