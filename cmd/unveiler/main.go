// Package main provides the unveiler CLI: layer summaries, forward
// prediction and deconvolution visualization for exported models.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/arakhmati/unveiler/keras"
	"github.com/arakhmati/unveiler/model"
	"github.com/arakhmati/unveiler/tensor"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("unveiler %s\n", version)
	case "summary":
		err = runSummary(os.Args[2:])
	case "predict":
		err = runPredict(os.Args[2:])
	case "visualize":
		err = runVisualize(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "unveiler: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  unveiler summary <model.json>")
	fmt.Fprintln(os.Stderr, "  unveiler predict <model.json> <input.json>")
	fmt.Fprintln(os.Stderr, "  unveiler visualize -layer <name> -channel <n> [-output <out.json>] <model.json> <input.json>")
	fmt.Fprintln(os.Stderr, "  unveiler version")
}

func runSummary(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("summary expects exactly one model file")
	}

	descs, name, err := keras.Load(args[0])
	if err != nil {
		return err
	}
	net, err := model.New(descs)
	if err != nil {
		return err
	}

	fmt.Printf("Model: %s (%d layers)\n", name, net.Len())
	fmt.Printf("%-4s %-24s %-8s %s\n", "#", "name", "category", "output shape")
	for i := 0; i < net.Len(); i++ {
		fmt.Printf("%-4d %-24s %-8s %v\n",
			i, net.Name(i), net.Kind(i), net.Layer(i).OutputShape())
	}
	return nil
}

func runPredict(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("predict expects a model file and an input file")
	}

	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	x, err := loadTensor(args[1])
	if err != nil {
		return err
	}

	out, err := net.Predict(x)
	if err != nil {
		return err
	}
	return writeTensor(os.Stdout, out)
}

func runVisualize(args []string) error {
	fs := flag.NewFlagSet("visualize", flag.ContinueOnError)
	layerName := fs.String("layer", "", "conv layer to visualize")
	channel := fs.Int("channel", 0, "output channel of the layer")
	outputPath := fs.String("output", "", "write the projection to this file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *layerName == "" {
		return fmt.Errorf("visualize requires -layer")
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("visualize expects a model file and an input file")
	}

	net, err := loadNetwork(rest[0])
	if err != nil {
		return err
	}
	x, err := loadTensor(rest[1])
	if err != nil {
		return err
	}

	idx, err := net.Index(*layerName)
	if err != nil {
		return err
	}
	if _, err := net.PredictTo(x, idx); err != nil {
		return err
	}

	proj, err := net.Visualize(idx, *channel)
	if err != nil {
		return err
	}

	if *outputPath == "" {
		return writeTensor(os.Stdout, proj)
	}
	f, err := os.Create(*outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeTensor(f, proj)
}

func loadNetwork(path string) (*model.Network, error) {
	descs, _, err := keras.Load(path)
	if err != nil {
		return nil, err
	}
	return model.New(descs)
}

// tensorJSON is the CLI's tensor exchange format.
type tensorJSON struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

func loadTensor(path string) (*tensor.Tensor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc tensorJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse tensor %s: %w", path, err)
	}
	return tensor.FromSlice(doc.Data, tensor.Shape(doc.Shape))
}

func writeTensor(w io.Writer, t *tensor.Tensor) error {
	enc := json.NewEncoder(w)
	return enc.Encode(tensorJSON{Shape: t.Shape(), Data: t.Data()})
}
