package layers

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/arakhmati/unveiler/internal/activation"
	"github.com/arakhmati/unveiler/internal/tensor"
)

// Conv2D is a strided 2D convolution layer with a visualization-oriented
// inverse (transposed convolution).
//
// Input shape:  [in_channels, height, width]
// Weight shape: [kernel_h, kernel_w, in_channels, out_channels] (source model layout)
// Bias shape:   [out_channels]
// Output shape: [out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height - kernel_h) / stride_h + 1
//	out_w = (width - kernel_w) / stride_w + 1
//
// Only full kernel windows are computed (no padding).
type Conv2D struct {
	header

	weight *tensor.Tensor
	bias   *tensor.Tensor
	act    activation.Func

	kernelSize [2]int
	strides    [2]int

	inShape tensor.Shape // [in_channels, height, width]

	// Scratch buffers, sized once at construction.
	colBuf       []float32      // im2col matrix, [out_h*out_w, kernel_h*kernel_w*in_channels]
	actBuf       *tensor.Tensor // output-shaped copy for the inverse path's activation
	deconvOutput *tensor.Tensor // inverse result, shaped like the forward input
}

func newConv2D(d Desc) (*Conv2D, error) {
	h, err := newHeader(d)
	if err != nil {
		return nil, err
	}

	if len(d.InputShape) != 3 {
		return nil, fmt.Errorf("%w: conv2d layer %q expects 3D input [C, H, W], got %v",
			ErrShapeMismatch, d.Name, d.InputShape)
	}
	if len(d.Weights) != 2 {
		return nil, fmt.Errorf("%w: conv2d layer %q expects 2 weight tensors (kernel, bias), got %d",
			ErrShapeMismatch, d.Name, len(d.Weights))
	}
	weight, bias := d.Weights[0], d.Weights[1]

	kh, kw := d.KernelSize[0], d.KernelSize[1]
	sh, sw := d.Strides[0], d.Strides[1]
	if kh <= 0 || kw <= 0 {
		return nil, fmt.Errorf("%w: conv2d layer %q has invalid kernel size %v",
			ErrShapeMismatch, d.Name, d.KernelSize)
	}
	if sh <= 0 || sw <= 0 {
		return nil, fmt.Errorf("%w: conv2d layer %q has invalid strides %v",
			ErrShapeMismatch, d.Name, d.Strides)
	}

	inC, inH, inW := d.InputShape[0], d.InputShape[1], d.InputShape[2]

	if len(weight.Shape()) != 4 ||
		weight.Shape()[0] != kh || weight.Shape()[1] != kw || weight.Shape()[2] != inC {
		return nil, fmt.Errorf("%w: conv2d layer %q kernel must be [%d, %d, %d, out], got %v",
			ErrShapeMismatch, d.Name, kh, kw, inC, weight.Shape())
	}
	outC := weight.Shape()[3]

	if !bias.Shape().Equal(tensor.Shape{outC}) {
		return nil, fmt.Errorf("%w: conv2d layer %q bias must have shape [%d], got %v",
			ErrShapeMismatch, d.Name, outC, bias.Shape())
	}

	outH := (inH-kh)/sh + 1
	outW := (inW-kw)/sw + 1
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("%w: conv2d layer %q kernel %v does not fit input %v",
			ErrShapeMismatch, d.Name, d.KernelSize, d.InputShape)
	}
	if !d.OutputShape.Equal(tensor.Shape{outC, outH, outW}) {
		return nil, fmt.Errorf("%w: conv2d layer %q declares output %v, kernel produces [%d, %d, %d]",
			ErrShapeMismatch, d.Name, d.OutputShape, outC, outH, outW)
	}

	act, err := activation.Resolve(d.Activation)
	if err != nil {
		return nil, fmt.Errorf("conv2d layer %q: %w", d.Name, err)
	}

	return &Conv2D{
		header:       h,
		weight:       weight.Clone(),
		bias:         bias.Clone(),
		act:          act,
		kernelSize:   d.KernelSize,
		strides:      d.Strides,
		inShape:      d.InputShape.Clone(),
		colBuf:       make([]float32, outH*outW*kh*kw*inC),
		actBuf:       tensor.Zeros(d.OutputShape),
		deconvOutput: tensor.Zeros(d.InputShape),
	}, nil
}

// Feedforward convolves x with the layer's kernel, adds the bias and
// applies the activation, writing into the layer's output buffer.
//
// Algorithm: im2col + matmul. Input windows are unrolled into rows of
// the column matrix, the kernel tensor is viewed as a
// [kernel_h*kernel_w*in_channels, out_channels] matrix (its natural
// row-major layout), and one Gemm produces the channel-first output
// directly.
func (l *Conv2D) Feedforward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(l.inShape) {
		return nil, fmt.Errorf("%w: conv2d layer %q expects input %v, got %v",
			ErrShapeMismatch, l.name, l.inShape, x.Shape())
	}

	inC, inH, inW := l.inShape[0], l.inShape[1], l.inShape[2]
	outC, outH, outW := l.output.Shape()[0], l.output.Shape()[1], l.output.Shape()[2]
	kh, kw := l.kernelSize[0], l.kernelSize[1]
	sh, sw := l.strides[0], l.strides[1]

	l.im2col(x.Data(), inC, inH, inW, outH, outW, kh, kw, sh, sw)

	// Seed every output channel plane with its bias, then accumulate
	// the matmul on top (beta = 1).
	outData := l.output.Data()
	biasData := l.bias.Data()
	positions := outH * outW
	for c := 0; c < outC; c++ {
		plane := outData[c*positions : (c+1)*positions]
		for p := range plane {
			plane[p] = biasData[c]
		}
	}

	// output[c, p] = sum_k weight[k, c] * col[p, k]
	cols := kh * kw * inC
	blas32.Gemm(blas.Trans, blas.Trans, 1,
		blas32.General{Rows: cols, Cols: outC, Stride: outC, Data: l.weight.Data()},
		blas32.General{Rows: positions, Cols: cols, Stride: cols, Data: l.colBuf},
		1,
		blas32.General{Rows: outC, Cols: positions, Stride: positions, Data: outData},
	)

	return l.act(l.output), nil
}

// im2col unrolls every full kernel window of the input into one row of
// the column matrix. Column order is (kernel_h, kernel_w, in_channels),
// matching the kernel tensor's row-major layout.
func (l *Conv2D) im2col(input []float32, inC, inH, inW, outH, outW, kh, kw, sh, sw int) {
	bufIdx := 0

	for outRow := 0; outRow < outH; outRow++ {
		hStart := outRow * sh
		for outCol := 0; outCol < outW; outCol++ {
			wStart := outCol * sw

			for a := 0; a < kh; a++ {
				rowStart := (hStart + a) * inW
				for b := 0; b < kw; b++ {
					col := wStart + b
					for c := 0; c < inC; c++ {
						l.colBuf[bufIdx] = input[c*inH*inW+rowStart+col]
						bufIdx++
					}
				}
			}
		}
	}
}

// Deconvolve projects x back into the layer's input space by
// distributing each cell of x over its receptive field with the
// transposed kernel patch. Overlapping windows accumulate.
//
// A nil x starts from the layer's own last forward output; a nil w uses
// the layer's own weights. The activation is applied to x first,
// matching the forward pass's post-activation state. This is a
// guided-backprop style heuristic, not a true inverse.
//
// The transposed patch is a spatial transpose of the kernel, which only
// fits the receptive field when the kernel is square; non-square
// kernels fail with ErrShapeMismatch.
//
// The result is cached in the layer's deconvolution buffer, which is
// cleared and rewritten on every call.
func (l *Conv2D) Deconvolve(x, w *tensor.Tensor) (*tensor.Tensor, error) {
	if l.kernelSize[0] != l.kernelSize[1] {
		return nil, fmt.Errorf("%w: conv2d layer %q cannot transpose non-square kernel %v",
			ErrShapeMismatch, l.name, l.kernelSize)
	}
	if x == nil {
		x = l.output
	}
	if !x.Shape().Equal(l.output.Shape()) {
		return nil, fmt.Errorf("%w: conv2d layer %q deconvolve expects %v, got %v",
			ErrShapeMismatch, l.name, l.output.Shape(), x.Shape())
	}
	if w == nil {
		w = l.weight
	}
	if !w.Shape().Equal(l.weight.Shape()) {
		return nil, fmt.Errorf("%w: conv2d layer %q deconvolve expects weights %v, got %v",
			ErrShapeMismatch, l.name, l.weight.Shape(), w.Shape())
	}

	// Activate a copy so the caller's tensor is left untouched.
	copy(l.actBuf.Data(), x.Data())
	actData := l.act(l.actBuf).Data()

	l.deconvOutput.Zero()

	inC, inH, inW := l.inShape[0], l.inShape[1], l.inShape[2]
	outC, outH, outW := l.output.Shape()[0], l.output.Shape()[1], l.output.Shape()[2]
	kh, kw := l.kernelSize[0], l.kernelSize[1]
	sh, sw := l.strides[0], l.strides[1]

	wData := w.Data()
	outData := l.deconvOutput.Data()

	for i := 0; i < outC; i++ {
		actPlane := actData[i*outH*outW : (i+1)*outH*outW]
		for j := 0; j < inC; j++ {
			deconvPlane := outData[j*inH*inW : (j+1)*inH*inW]
			for k := 0; k+kh <= inH; k += sh {
				for m := 0; m+kw <= inW; m += sw {
					v := actPlane[(k/sh)*outW+m/sw]
					// Stamp the transposed kernel patch onto the
					// window: patch(a, b) = w[b, a, j, i].
					for a := 0; a < kh; a++ {
						row := deconvPlane[(k+a)*inW+m : (k+a)*inW+m+kw]
						for b := 0; b < kw; b++ {
							row[b] += v * wData[((b*kw+a)*inC+j)*outC+i]
						}
					}
				}
			}
		}
	}

	return l.deconvOutput, nil
}
