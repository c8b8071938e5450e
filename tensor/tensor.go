// Copyright 2025 The Unveiler Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense float32 tensors
// used throughout unveiler.
//
// All tensors use channel-first layout: axis 0 is the channel/feature
// index, the remaining axes are spatial ([channels, height, width]) or
// a flattened feature index ([1, features]).
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{1, 28, 28})
//	x.Set(1.0, 0, 14, 14)
package tensor

import (
	"github.com/arakhmati/unveiler/internal/tensor"
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Tensor is a dense float32 array in row-major order.
type Tensor = tensor.Tensor

// New creates a zero-filled tensor with the given shape, or an error if
// the shape is invalid.
func New(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// Zeros creates a zero-filled tensor with the given shape, panicking on
// invalid shapes.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// FromSlice creates a tensor with the given shape, copying data.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}
