package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arakhmati/unveiler/internal/layers"
	"github.com/arakhmati/unveiler/internal/tensor"
)

func onesTensor(t *testing.T, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	x := tensor.Zeros(shape)
	x.Fill(1)
	return x
}

// testDescs builds a small LeNet-style chain:
//
//	input -> conv1 -> pool -> dropout -> flatten -> dense
//
// conv1: (1, 5, 5) -> (1, 4, 4), 2x2 kernel, stride 1
// pool:  (1, 4, 4) -> (1, 2, 2), 2x2 pool, stride 2
func testDescs(t *testing.T) []layers.Desc {
	t.Helper()

	convKernel, err := tensor.FromSlice([]float32{1, 1, 1, 1}, tensor.Shape{2, 2, 1, 1})
	require.NoError(t, err)

	denseKernel := tensor.Zeros(tensor.Shape{4, 2})
	denseKernel.Set(1, 0, 0)
	denseKernel.Set(1, 1, 1)

	return []layers.Desc{
		{Kind: layers.DescInput, Name: "input_1", OutputShape: tensor.Shape{1, 5, 5}},
		{
			Kind:        layers.DescConv2D,
			Name:        "conv2d_1",
			InputShape:  tensor.Shape{1, 5, 5},
			OutputShape: tensor.Shape{1, 4, 4},
			Weights:     []*tensor.Tensor{convKernel, tensor.Zeros(tensor.Shape{1})},
			Activation:  "relu",
			KernelSize:  [2]int{2, 2},
			Strides:     [2]int{1, 1},
		},
		{
			Kind:        layers.DescMaxPooling2D,
			Name:        "max_pooling2d_1",
			InputShape:  tensor.Shape{1, 4, 4},
			OutputShape: tensor.Shape{1, 2, 2},
			PoolSize:    [2]int{2, 2},
			Strides:     [2]int{2, 2},
		},
		{
			Kind:        layers.DescDropout,
			Name:        "dropout_1",
			InputShape:  tensor.Shape{1, 2, 2},
			OutputShape: tensor.Shape{1, 2, 2},
		},
		{
			Kind:        layers.DescFlatten,
			Name:        "flatten_1",
			InputShape:  tensor.Shape{1, 2, 2},
			OutputShape: tensor.Shape{1, 4},
		},
		{
			Kind:        layers.DescDense,
			Name:        "dense_1",
			InputShape:  tensor.Shape{1, 4},
			OutputShape: tensor.Shape{1, 2},
			Weights:     []*tensor.Tensor{denseKernel, tensor.Zeros(tensor.Shape{2})},
			Activation:  "linear",
		},
	}
}

func TestNew_SkipsInputPlaceholder(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	assert.Equal(t, 5, n.Len())
	assert.Equal(t, "conv2d_1", n.Name(0))
	assert.Equal(t, layers.KindConv, n.Kind(0))
	assert.Equal(t, layers.KindMaxPool, n.Kind(1))
	assert.Equal(t, layers.KindOther, n.Kind(2))
}

func TestNew_PropagatesFactoryErrors(t *testing.T) {
	_, err := New([]layers.Desc{{Kind: layers.DescUnknown, TypeName: "GRU", Name: "gru_1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, layers.ErrUnsupportedLayerKind)
}

func TestNetwork_Index(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	idx, err := n.Index("max_pooling2d_1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = n.Index("nope")
	assert.Error(t, err)
}

func TestNetwork_PredictShapePropagation(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	out, err := n.Predict(onesTensor(t, tensor.Shape{1, 5, 5}))
	require.NoError(t, err)

	assert.True(t, out.Shape().Equal(tensor.Shape{1, 2}))

	// Every 2x2 window of ones convolves to 4; pooling keeps 4; the
	// dense identity columns pick the first two flattened cells.
	assert.Equal(t, []float32{4, 4}, out.Data())
}

func TestNetwork_PredictToStopsWhereTold(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	out, err := n.PredictTo(onesTensor(t, tensor.Shape{1, 5, 5}), 1)
	require.NoError(t, err)

	assert.True(t, out.Shape().Equal(tensor.Shape{1, 2, 2}))
	assert.Same(t, n.Layer(1).Output(), out)

	// Layers past the stop point were never run.
	assert.Zero(t, n.Layer(4).Output().Sum())
}

func TestNetwork_PredictToOutOfRange(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	_, err = n.PredictTo(onesTensor(t, tensor.Shape{1, 5, 5}), 99)
	assert.Error(t, err)
}

func TestNetwork_DeconvolveMustStartAtConv(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	_, err = n.Deconvolve(1, nil) // maxpool
	require.Error(t, err)
	assert.ErrorIs(t, err, layers.ErrUnsupportedOperation)

	_, err = n.Deconvolve(4, nil) // dense
	require.Error(t, err)
	assert.ErrorIs(t, err, layers.ErrUnsupportedOperation)
}

func TestNetwork_DeconvolveFromConvLayer(t *testing.T) {
	n, err := New(testDescs(t))
	require.NoError(t, err)

	_, err = n.PredictTo(onesTensor(t, tensor.Shape{1, 5, 5}), 0)
	require.NoError(t, err)

	out, err := n.Deconvolve(0, nil)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{1, 5, 5}))
}

// chainDescs stacks two convolutions around batch normalization and
// pooling so the backward walk exercises every routing branch:
//
//	conv1 (1,5,5)->(1,4,4) -> bn -> pool (1,4,4)->(1,2,2) -> conv2 (1,2,2)->(1,1,1)
func chainDescs(t *testing.T) []layers.Desc {
	t.Helper()

	kernel := func(vals ...float32) *tensor.Tensor {
		w, err := tensor.FromSlice(vals, tensor.Shape{2, 2, 1, 1})
		require.NoError(t, err)
		return w
	}
	ones := func() *tensor.Tensor {
		v := tensor.Zeros(tensor.Shape{1})
		v.Fill(1)
		return v
	}

	return []layers.Desc{
		{
			Kind:        layers.DescConv2D,
			Name:        "conv2d_1",
			InputShape:  tensor.Shape{1, 5, 5},
			OutputShape: tensor.Shape{1, 4, 4},
			Weights:     []*tensor.Tensor{kernel(1, 1, 1, 1), tensor.Zeros(tensor.Shape{1})},
			Activation:  "relu",
			KernelSize:  [2]int{2, 2},
			Strides:     [2]int{1, 1},
		},
		{
			Kind:        layers.DescBatchNormalization,
			Name:        "batch_normalization_1",
			InputShape:  tensor.Shape{1, 4, 4},
			OutputShape: tensor.Shape{1, 4, 4},
			Weights: []*tensor.Tensor{
				ones(), tensor.Zeros(tensor.Shape{1}),
				tensor.Zeros(tensor.Shape{1}), ones(),
			},
		},
		{
			Kind:        layers.DescMaxPooling2D,
			Name:        "max_pooling2d_1",
			InputShape:  tensor.Shape{1, 4, 4},
			OutputShape: tensor.Shape{1, 2, 2},
			PoolSize:    [2]int{2, 2},
			Strides:     [2]int{2, 2},
		},
		{
			Kind:        layers.DescConv2D,
			Name:        "conv2d_2",
			InputShape:  tensor.Shape{1, 2, 2},
			OutputShape: tensor.Shape{1, 1, 1},
			Weights:     []*tensor.Tensor{kernel(1, 2, 3, 4), tensor.Zeros(tensor.Shape{1})},
			Activation:  "relu",
			KernelSize:  [2]int{2, 2},
			Strides:     [2]int{1, 1},
		},
	}
}

func TestNetwork_DeconvolveChainsThroughEveryCategory(t *testing.T) {
	n, err := New(chainDescs(t))
	require.NoError(t, err)

	x := tensor.Zeros(tensor.Shape{1, 5, 5})
	for i, data := 0, x.Data(); i < len(data); i++ {
		data[i] = float32(i % 7)
	}

	_, err = n.Predict(x)
	require.NoError(t, err)

	out, err := n.Deconvolve(3, nil)
	require.NoError(t, err)
	assert.True(t, out.Shape().Equal(tensor.Shape{1, 5, 5}))
	assert.Positive(t, out.Sum())
}

func TestNetwork_VisualizeWinningActivation(t *testing.T) {
	n, err := New(chainDescs(t))
	require.NoError(t, err)

	x := tensor.Zeros(tensor.Shape{1, 5, 5})
	// A single bright spot so the winning receptive field is known.
	x.Set(10, 0, 1, 1)

	_, err = n.Predict(x)
	require.NoError(t, err)

	out, err := n.Visualize(0, 0)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 5, 5}))

	// conv1's strongest cell is at (0, 0): its 2x2 window covers the
	// bright spot. Everything outside that window is zero.
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			if r < 2 && c < 2 {
				continue
			}
			assert.Zero(t, out.At(0, r, c), "expected zero at (%d, %d)", r, c)
		}
	}
	assert.Positive(t, out.Sum())
}

func TestNetwork_VisualizeValidation(t *testing.T) {
	n, err := New(chainDescs(t))
	require.NoError(t, err)

	_, err = n.Visualize(2, 0) // maxpool
	assert.ErrorIs(t, err, layers.ErrUnsupportedOperation)

	_, err = n.Visualize(0, 5) // channel out of range
	assert.Error(t, err)
}
