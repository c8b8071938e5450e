// Copyright 2025 The Unveiler Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides the public API for the per-layer forward and
// inverse kernels.
//
// Example:
//
//	layer, kind, err := layers.New(desc)
//	if err != nil { ... }
//	out, err := layer.Feedforward(x)
//	back, err := layers.Deconvolve(layer, nil, nil) // conv and maxpool only
package layers

import (
	"github.com/arakhmati/unveiler/internal/layers"
	"github.com/arakhmati/unveiler/internal/tensor"
)

// Layer is the contract every kernel satisfies.
type Layer = layers.Layer

// Deconvolver is implemented by layers that support the inverse pass.
type Deconvolver = layers.Deconvolver

// Desc is a source layer description consumed by the factory.
type Desc = layers.Desc

// DescKind enumerates the supported layer types.
type DescKind = layers.DescKind

// Supported layer kinds.
const (
	DescUnknown            = layers.DescUnknown
	DescInput              = layers.DescInput
	DescDense              = layers.DescDense
	DescConv2D             = layers.DescConv2D
	DescMaxPooling2D       = layers.DescMaxPooling2D
	DescFlatten            = layers.DescFlatten
	DescBatchNormalization = layers.DescBatchNormalization
	DescDropout            = layers.DescDropout
)

// Kind is a layer's category tag: conv, maxpool or other.
type Kind = layers.Kind

// Layer categories.
const (
	KindOther   = layers.KindOther
	KindConv    = layers.KindConv
	KindMaxPool = layers.KindMaxPool
)

// Errors returned by the factory and kernels.
var (
	ErrUnsupportedLayerKind = layers.ErrUnsupportedLayerKind
	ErrUnsupportedOperation = layers.ErrUnsupportedOperation
	ErrShapeMismatch        = layers.ErrShapeMismatch
)

// Concrete kernels.
type (
	// Dense is a fully-connected layer.
	Dense = layers.Dense
	// Conv2D is a strided 2D convolution layer with an inverse.
	Conv2D = layers.Conv2D
	// MaxPooling2D is a strided max-pooling layer with an unpooling inverse.
	MaxPooling2D = layers.MaxPooling2D
	// Flatten reshapes to a row vector.
	Flatten = layers.Flatten
	// BatchNormalization applies per-channel affine normalization.
	BatchNormalization = layers.BatchNormalization
	// Dropout is an inference-mode identity passthrough.
	Dropout = layers.Dropout
)

// New constructs the kernel matching the description, tagged with its
// category. Input placeholders produce (nil, KindOther, nil).
func New(d Desc) (Layer, Kind, error) {
	return layers.New(d)
}

// Deconvolve projects x back through l; layers without the capability
// fail with ErrUnsupportedOperation.
func Deconvolve(l Layer, x, w *tensor.Tensor) (*tensor.Tensor, error) {
	return layers.Deconvolve(l, x, w)
}
