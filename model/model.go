// Copyright 2025 The Unveiler Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model provides the public API for driving a whole network:
// forward prediction and backward deconvolution visualization.
//
// Example:
//
//	descs, name, err := keras.Load("model.json")
//	net, err := model.New(descs)
//	out, err := net.Predict(x)
//	proj, err := net.Visualize(convIdx, 0)
package model

import (
	"github.com/arakhmati/unveiler/internal/layers"
	"github.com/arakhmati/unveiler/internal/model"
)

// Network is an ordered chain of layer kernels.
type Network = model.Network

// New builds a network from ordered layer descriptions.
func New(descs []layers.Desc) (*Network, error) {
	return model.New(descs)
}
