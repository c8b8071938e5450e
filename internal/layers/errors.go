package layers

import "errors"

// Sentinel errors returned by the layer factory and kernels.
var (
	// ErrUnsupportedLayerKind is returned by the factory when a layer
	// description declares a type outside the supported set.
	ErrUnsupportedLayerKind = errors.New("unsupported layer kind")

	// ErrUnsupportedOperation is returned when Deconvolve is invoked on
	// a layer type that does not define an inverse operation.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrShapeMismatch is returned when a tensor's rank or dimensions do
	// not match what a kernel expects; no partial computation is
	// attempted.
	ErrShapeMismatch = errors.New("shape mismatch")
)
