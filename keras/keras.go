// Copyright 2025 The Unveiler Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package keras provides the public API for loading layer descriptions
// from a Keras-style JSON model export.
//
// Example:
//
//	descs, name, err := keras.Load("mnist_cnn.json")
//	if err != nil { ... }
//	net, err := model.New(descs)
package keras

import (
	"io"

	"github.com/arakhmati/unveiler/internal/keras"
	"github.com/arakhmati/unveiler/internal/layers"
)

// Load reads a model document from a file.
func Load(path string) ([]layers.Desc, string, error) {
	return keras.Load(path)
}

// Parse decodes a model document into ordered layer descriptions and
// the model's name.
func Parse(r io.Reader) ([]layers.Desc, string, error) {
	return keras.Parse(r)
}
