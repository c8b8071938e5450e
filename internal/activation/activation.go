// Package activation resolves activation names from a source model into
// elementwise numeric transforms.
package activation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/arakhmati/unveiler/internal/tensor"
)

// ErrUnknownActivation is returned when an activation name is not in
// the resolver's table.
var ErrUnknownActivation = errors.New("unknown activation")

// Func is an elementwise transform over a tensor.
//
// The transform is applied IN PLACE and the same tensor is returned,
// so that layer kernels stay allocation-free across repeated calls.
type Func func(*tensor.Tensor) *tensor.Tensor

// registry maps activation names (as they appear in source models) to
// their implementations.
var registry = map[string]Func{
	"linear":  linear,
	"relu":    relu,
	"sigmoid": sigmoid,
	"softmax": softmax,
	"tanh":    tanh,
}

// Resolve returns the elementwise transform for the given activation
// name. Unknown names fail with ErrUnknownActivation.
func Resolve(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivation, name)
	}
	return fn, nil
}

// Names returns the registered activation names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// linear is the identity transform.
func linear(x *tensor.Tensor) *tensor.Tensor {
	return x
}

// relu applies f(v) = max(0, v).
func relu(x *tensor.Tensor) *tensor.Tensor {
	data := x.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return x
}

// sigmoid applies f(v) = 1 / (1 + exp(-v)).
func sigmoid(x *tensor.Tensor) *tensor.Tensor {
	data := x.Data()
	for i, v := range data {
		data[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
	return x
}

// tanh applies the hyperbolic tangent.
func tanh(x *tensor.Tensor) *tensor.Tensor {
	data := x.Data()
	for i, v := range data {
		data[i] = float32(math.Tanh(float64(v)))
	}
	return x
}

// softmax normalizes the whole tensor into a probability distribution.
//
// Inputs are shifted by the maximum before exponentiation for numerical
// stability; the result is invariant under constant shifts.
func softmax(x *tensor.Tensor) *tensor.Tensor {
	data := x.Data()

	maxVal := data[0]
	for _, v := range data[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float64
	for i, v := range data {
		e := math.Exp(float64(v - maxVal))
		data[i] = float32(e)
		sum += e
	}

	for i := range data {
		data[i] = float32(float64(data[i]) / sum)
	}
	return x
}
