// Copyright 2025 The Unveiler Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package activation provides the public API for resolving activation
// names into elementwise tensor transforms.
//
// Example:
//
//	relu, err := activation.Resolve("relu")
//	if err != nil { ... }
//	relu(x) // applied in place
package activation

import (
	"github.com/arakhmati/unveiler/internal/activation"
)

// Func is an elementwise transform applied in place.
type Func = activation.Func

// ErrUnknownActivation is returned for names outside the resolver's table.
var ErrUnknownActivation = activation.ErrUnknownActivation

// Resolve returns the transform registered under name.
func Resolve(name string) (Func, error) {
	return activation.Resolve(name)
}

// Names returns the registered activation names in sorted order.
func Names() []string {
	return activation.Names()
}
