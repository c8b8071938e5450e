// Package keras loads layer descriptions from a Keras-style JSON model
// export: one document carrying the architecture and the trained
// weights together. It is the adapter between an externally trained
// model and the layer factory; it parses fields, it does not compute.
package keras

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/arakhmati/unveiler/internal/layers"
	"github.com/arakhmati/unveiler/internal/tensor"
)

// modelJSON is the top-level document.
type modelJSON struct {
	Name   string      `json:"name"`
	Layers []layerJSON `json:"layers"`
}

// layerJSON is one exported layer. Shapes exclude the batch dimension.
type layerJSON struct {
	ClassName   string       `json:"class_name"`
	Name        string       `json:"name"`
	InputShape  []int        `json:"input_shape"`
	OutputShape []int        `json:"output_shape"`
	Activation  string       `json:"activation"`
	KernelSize  []int        `json:"kernel_size"`
	Strides     []int        `json:"strides"`
	PoolSize    []int        `json:"pool_size"`
	Epsilon     float32      `json:"epsilon"`
	Weights     []weightJSON `json:"weights"`
}

// weightJSON is one weight tensor as a shaped flat array.
type weightJSON struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// classKinds maps Keras class names to factory layer kinds. Class names
// outside this table map to DescUnknown and fail in the factory, which
// owns the unsupported-layer error.
var classKinds = map[string]layers.DescKind{
	"InputLayer":         layers.DescInput,
	"Dense":              layers.DescDense,
	"Conv2D":             layers.DescConv2D,
	"MaxPooling2D":       layers.DescMaxPooling2D,
	"Flatten":            layers.DescFlatten,
	"BatchNormalization": layers.DescBatchNormalization,
	"Dropout":            layers.DescDropout,
}

// Load reads a model document from a file. See Parse.
func Load(path string) ([]layers.Desc, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a model document into ordered layer descriptions and
// the model's name.
//
// Dense and Flatten shapes are normalized to [1, n] row vectors.
// Missing activations default to "linear", missing pooling strides
// default to the pool size and a missing batch normalization epsilon
// defaults to 1e-3, matching the source framework's defaults.
func Parse(r io.Reader) ([]layers.Desc, string, error) {
	var doc modelJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, "", fmt.Errorf("parse model: %w", err)
	}
	if len(doc.Layers) == 0 {
		return nil, "", fmt.Errorf("parse model: document has no layers")
	}

	descs := make([]layers.Desc, 0, len(doc.Layers))
	for i, l := range doc.Layers {
		desc, err := convertLayer(l)
		if err != nil {
			return nil, "", fmt.Errorf("layer %d (%q): %w", i, l.Name, err)
		}
		descs = append(descs, desc)
	}
	return descs, doc.Name, nil
}

// convertLayer maps one exported layer onto a factory description.
func convertLayer(l layerJSON) (layers.Desc, error) {
	if l.ClassName == "" {
		return layers.Desc{}, fmt.Errorf("missing class_name")
	}
	if l.Name == "" {
		return layers.Desc{}, fmt.Errorf("missing name")
	}

	kind := classKinds[l.ClassName] // zero value is DescUnknown
	desc := layers.Desc{
		Kind:       kind,
		TypeName:   l.ClassName,
		Name:       l.Name,
		Activation: l.Activation,
		Epsilon:    l.Epsilon,
	}

	if kind == layers.DescInput {
		desc.OutputShape = tensor.Shape(l.OutputShape).Clone()
		return desc, nil
	}

	if len(l.InputShape) == 0 || len(l.OutputShape) == 0 {
		return layers.Desc{}, fmt.Errorf("missing input_shape or output_shape")
	}
	desc.InputShape = normalizeShape(l.InputShape)
	desc.OutputShape = normalizeShape(l.OutputShape)

	if desc.Activation == "" {
		desc.Activation = "linear"
	}
	var err error
	if desc.KernelSize, err = asPair("kernel_size", l.KernelSize); err != nil {
		return layers.Desc{}, err
	}
	if desc.PoolSize, err = asPair("pool_size", l.PoolSize); err != nil {
		return layers.Desc{}, err
	}
	if desc.Strides, err = asPair("strides", l.Strides); err != nil {
		return layers.Desc{}, err
	}
	if desc.Strides == [2]int{} {
		switch kind {
		case layers.DescMaxPooling2D:
			desc.Strides = desc.PoolSize
		case layers.DescConv2D:
			desc.Strides = [2]int{1, 1}
		}
	}
	if kind == layers.DescBatchNormalization && desc.Epsilon == 0 {
		desc.Epsilon = 1e-3
	}

	for i, w := range l.Weights {
		shape := tensor.Shape(w.Shape)
		wt, err := tensor.FromSlice(w.Data, shape)
		if err != nil {
			return layers.Desc{}, fmt.Errorf("weight %d: %w", i, err)
		}
		desc.Weights = append(desc.Weights, wt)
	}

	return desc, nil
}

// normalizeShape turns flat feature shapes into [1, n] row vectors so
// that the whole dense tail of a network (flatten, dropout, dense)
// exchanges consistently shaped tensors.
func normalizeShape(dims []int) tensor.Shape {
	if len(dims) == 1 {
		return tensor.Shape{1, dims[0]}
	}
	return tensor.Shape(dims).Clone()
}

// asPair converts an optional two-element field.
func asPair(field string, dims []int) ([2]int, error) {
	switch len(dims) {
	case 0:
		return [2]int{}, nil
	case 2:
		return [2]int{dims[0], dims[1]}, nil
	default:
		return [2]int{}, fmt.Errorf("%s must have 2 elements, got %d", field, len(dims))
	}
}
