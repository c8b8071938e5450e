package layers

import (
	"github.com/arakhmati/unveiler/internal/tensor"
)

// DescKind enumerates the layer types the factory knows how to build.
//
// The zero value is DescUnknown so that a descriptor produced from an
// unrecognized source layer fails in the factory rather than silently
// constructing the wrong kernel.
type DescKind int

// Supported layer kinds.
const (
	DescUnknown DescKind = iota
	DescInput
	DescDense
	DescConv2D
	DescMaxPooling2D
	DescFlatten
	DescBatchNormalization
	DescDropout
)

// Desc is a source layer description: everything the factory needs to
// construct a kernel, extracted from a trained model by an external
// adapter (see the keras package).
//
// InputShape and OutputShape exclude the batch dimension. Dense and
// Flatten shapes are row vectors [1, features]. Weights is the source
// model's ordered weight list: [kernel, bias] for Dense and Conv2D,
// [gamma, beta, mean, variance] for BatchNormalization.
type Desc struct {
	Kind     DescKind
	TypeName string // original declared type, reported on factory failure
	Name     string

	InputShape  tensor.Shape
	OutputShape tensor.Shape

	Weights    []*tensor.Tensor
	Activation string

	KernelSize [2]int // Conv2D: (height, width)
	Strides    [2]int // Conv2D and MaxPooling2D: (height, width)
	PoolSize   [2]int // MaxPooling2D: (height, width)
	Epsilon    float32
}
