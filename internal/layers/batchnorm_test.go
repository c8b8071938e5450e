package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arakhmati/unveiler/internal/tensor"
)

func newTestBatchNorm(t *testing.T, gamma, beta, mean, variance []float32, epsilon float32, shape tensor.Shape) *BatchNormalization {
	t.Helper()
	channels := tensor.Shape{shape[0]}
	l, err := newBatchNormalization(Desc{
		Kind:        DescBatchNormalization,
		Name:        "bn",
		InputShape:  shape,
		OutputShape: shape,
		Weights: []*tensor.Tensor{
			mustTensor(t, gamma, channels),
			mustTensor(t, beta, channels),
			mustTensor(t, mean, channels),
			mustTensor(t, variance, channels),
		},
		Epsilon: epsilon,
	})
	require.NoError(t, err)
	return l
}

func TestBatchNormalization_IdentityParameters(t *testing.T) {
	// gamma=1, beta=0, mean=0, variance=1, epsilon=0: output equals
	// input unchanged.
	l := newTestBatchNorm(t,
		[]float32{1, 1}, []float32{0, 0}, []float32{0, 0}, []float32{1, 1},
		0, tensor.Shape{2, 2, 2})

	x := mustTensor(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 2, 2})

	out, err := l.Feedforward(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, out.Data())
}

func TestBatchNormalization_PerChannelAffine(t *testing.T) {
	// Channel 0: gamma=2, mean=1, variance=4 -> 2*(x-1)/2 = x-1
	// Channel 1: gamma=1, beta=10, mean=0, variance=1 -> x+10
	l := newTestBatchNorm(t,
		[]float32{2, 1}, []float32{0, 10}, []float32{1, 0}, []float32{4, 1},
		0, tensor.Shape{2, 1, 2})

	x := mustTensor(t, []float32{3, 5, 1, 2}, tensor.Shape{2, 1, 2})

	out, err := l.Feedforward(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{2, 4, 11, 12}, out.Data(), 1e-6)
}

func TestBatchNormalization_EpsilonStabilizesZeroVariance(t *testing.T) {
	l := newTestBatchNorm(t,
		[]float32{1}, []float32{0}, []float32{0}, []float32{0},
		1, tensor.Shape{1, 1, 1})

	x := mustTensor(t, []float32{2}, tensor.Shape{1, 1, 1})

	out, err := l.Feedforward(x)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out.At(0, 0, 0), 1e-6) // 2 / sqrt(0 + 1)
}

func TestBatchNormalization_ShapeMismatch(t *testing.T) {
	l := newTestBatchNorm(t,
		[]float32{1}, []float32{0}, []float32{0}, []float32{1},
		0, tensor.Shape{1, 2, 2})

	_, err := l.Feedforward(tensor.Zeros(tensor.Shape{1, 3, 3}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBatchNormalization_ConstructionValidation(t *testing.T) {
	t.Run("wrong weight count", func(t *testing.T) {
		_, err := newBatchNormalization(Desc{
			Kind:        DescBatchNormalization,
			Name:        "bn",
			InputShape:  tensor.Shape{2, 2, 2},
			OutputShape: tensor.Shape{2, 2, 2},
			Weights: []*tensor.Tensor{
				tensor.Zeros(tensor.Shape{2}),
				tensor.Zeros(tensor.Shape{2}),
			},
		})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("per-channel vector length", func(t *testing.T) {
		_, err := newBatchNormalization(Desc{
			Kind:        DescBatchNormalization,
			Name:        "bn",
			InputShape:  tensor.Shape{2, 2, 2},
			OutputShape: tensor.Shape{2, 2, 2},
			Weights: []*tensor.Tensor{
				tensor.Zeros(tensor.Shape{3}),
				tensor.Zeros(tensor.Shape{3}),
				tensor.Zeros(tensor.Shape{3}),
				tensor.Zeros(tensor.Shape{3}),
			},
		})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
