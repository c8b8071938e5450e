// Package model drives a whole network of layer kernels: the forward
// walk through the layer chain and the backward deconvolution walk used
// for visualization.
package model

import (
	"fmt"

	"github.com/arakhmati/unveiler/internal/layers"
	"github.com/arakhmati/unveiler/internal/tensor"
)

// Network is an ordered chain of layer kernels built from source layer
// descriptions. Input placeholders are skipped at construction; every
// remaining layer keeps its category tag and declared input shape so
// the backward walk can route through it.
type Network struct {
	layers   []layers.Layer
	kinds    []layers.Kind
	inShapes []tensor.Shape
}

// New builds a network from ordered layer descriptions using the layer
// factory. Construction fails on the first unsupported or inconsistent
// description.
func New(descs []layers.Desc) (*Network, error) {
	n := &Network{}
	for _, d := range descs {
		l, kind, err := layers.New(d)
		if err != nil {
			return nil, err
		}
		if l == nil {
			// Input placeholder: no kernel.
			continue
		}
		n.layers = append(n.layers, l)
		n.kinds = append(n.kinds, kind)
		n.inShapes = append(n.inShapes, d.InputShape.Clone())
	}
	return n, nil
}

// Len returns the number of layers (input placeholders excluded).
func (n *Network) Len() int {
	return len(n.layers)
}

// Layer returns the layer at index i.
func (n *Network) Layer(i int) layers.Layer {
	return n.layers[i]
}

// Kind returns the category tag of the layer at index i.
func (n *Network) Kind(i int) layers.Kind {
	return n.kinds[i]
}

// Name returns the name of the layer at index i.
func (n *Network) Name(i int) string {
	return n.layers[i].Name()
}

// Index returns the index of the layer with the given name.
func (n *Network) Index(name string) (int, error) {
	for i, l := range n.layers {
		if l.Name() == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no layer named %q", name)
}

// Predict runs a full forward pass and returns the last layer's output.
func (n *Network) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	return n.PredictTo(x, len(n.layers)-1)
}

// PredictTo runs the forward pass through layers [0, stop] and returns
// the stop layer's output. Every traversed layer records its activation
// in its own output buffer; the deconvolution pass reads them from
// there.
func (n *Network) PredictTo(x *tensor.Tensor, stop int) (*tensor.Tensor, error) {
	if stop < 0 || stop >= len(n.layers) {
		return nil, fmt.Errorf("layer index %d out of range [0, %d]", stop, len(n.layers)-1)
	}

	cur := x
	for i := 0; i <= stop; i++ {
		out, err := n.layers[i].Feedforward(cur)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", n.layers[i].Name(), err)
		}
		cur = out
	}
	return cur, nil
}

// Deconvolve walks backward from the given layer down to the input
// space, inverting each layer in turn.
//
// The starting layer must be a convolution layer; a nil x starts from
// its own last forward output. Pooling layers unpool through their
// index memory, pass-through layers (dropout, batch normalization) are
// skipped unchanged, and layers that reshape their input (dense,
// flatten) cannot be projected through and fail with
// ErrUnsupportedOperation.
//
// The layers' recorded activations and pooling indices come from the
// most recent forward pass; run Predict or PredictTo first.
func (n *Network) Deconvolve(layer int, x *tensor.Tensor) (*tensor.Tensor, error) {
	if layer < 0 || layer >= len(n.layers) {
		return nil, fmt.Errorf("layer index %d out of range [0, %d]", layer, len(n.layers)-1)
	}
	if n.kinds[layer] != layers.KindConv {
		return nil, fmt.Errorf("%w: deconvolution must start at a conv layer, %q is %s",
			layers.ErrUnsupportedOperation, n.layers[layer].Name(), n.kinds[layer])
	}

	cur := x
	for i := layer; i >= 0; i-- {
		l := n.layers[i]
		switch n.kinds[i] {
		case layers.KindConv, layers.KindMaxPool:
			out, err := layers.Deconvolve(l, cur, nil)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", l.Name(), err)
			}
			cur = out
		default:
			// Shape-preserving layers pass the projection through
			// untouched; reshaping layers cannot be inverted.
			if !n.inShapes[i].Equal(l.OutputShape()) {
				return nil, fmt.Errorf("%w: cannot project back through layer %q (%v -> %v)",
					layers.ErrUnsupportedOperation, l.Name(), n.inShapes[i], l.OutputShape())
			}
		}
	}
	return cur, nil
}

// Visualize projects the strongest activation of one channel of a conv
// layer back to the input space: the chosen layer's output is copied,
// every cell except the channel's maximum is zeroed, and the masked
// tensor is deconvolved down the chain.
//
// Requires a prior forward pass through the chosen layer.
func (n *Network) Visualize(layer, channel int) (*tensor.Tensor, error) {
	if layer < 0 || layer >= len(n.layers) {
		return nil, fmt.Errorf("layer index %d out of range [0, %d]", layer, len(n.layers)-1)
	}
	if n.kinds[layer] != layers.KindConv {
		return nil, fmt.Errorf("%w: visualization must start at a conv layer, %q is %s",
			layers.ErrUnsupportedOperation, n.layers[layer].Name(), n.kinds[layer])
	}

	output := n.layers[layer].Output()
	shape := output.Shape()
	if channel < 0 || channel >= shape[0] {
		return nil, fmt.Errorf("channel %d out of range [0, %d]", channel, shape[0]-1)
	}

	// Find the winning cell of the chosen channel.
	planeSize := shape[1] * shape[2]
	plane := output.Data()[channel*planeSize : (channel+1)*planeSize]
	maxIdx := 0
	for i, v := range plane {
		if v > plane[maxIdx] {
			maxIdx = i
		}
	}

	masked := tensor.Zeros(shape)
	masked.Data()[channel*planeSize+maxIdx] = plane[maxIdx]

	return n.Deconvolve(layer, masked)
}
