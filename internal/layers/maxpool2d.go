package layers

import (
	"fmt"

	"github.com/arakhmati/unveiler/internal/tensor"
)

// MaxPooling2D is a strided 2D max-pooling layer with an unpooling
// inverse driven by argmax index memory.
//
// Input shape:  [channels, height, width]
// Output shape: [channels, out_h, out_w]
//
// Where:
//
//	out_h = (height - pool_h) / stride_h + 1
//	out_w = (width - pool_w) / stride_w + 1
//
// Only positions where a full pooling window fits are pooled.
type MaxPooling2D struct {
	header

	poolSize [2]int
	strides  [2]int

	inShape tensor.Shape

	// indices records, for every forward-output cell, the absolute
	// (row, col) input coordinate where the maximum was found. Logical
	// shape [channels, out_h, out_w, 2]. Only valid after the most
	// recent Feedforward on this instance.
	indices []int32

	deconvOutput *tensor.Tensor // inverse result, shaped like the forward input
}

func newMaxPooling2D(d Desc) (*MaxPooling2D, error) {
	h, err := newHeader(d)
	if err != nil {
		return nil, err
	}

	if len(d.InputShape) != 3 {
		return nil, fmt.Errorf("%w: maxpool layer %q expects 3D input [C, H, W], got %v",
			ErrShapeMismatch, d.Name, d.InputShape)
	}

	ph, pw := d.PoolSize[0], d.PoolSize[1]
	sh, sw := d.Strides[0], d.Strides[1]
	if ph <= 0 || pw <= 0 {
		return nil, fmt.Errorf("%w: maxpool layer %q has invalid pool size %v",
			ErrShapeMismatch, d.Name, d.PoolSize)
	}
	if sh <= 0 || sw <= 0 {
		return nil, fmt.Errorf("%w: maxpool layer %q has invalid strides %v",
			ErrShapeMismatch, d.Name, d.Strides)
	}

	c, inH, inW := d.InputShape[0], d.InputShape[1], d.InputShape[2]
	outH := (inH-ph)/sh + 1
	outW := (inW-pw)/sw + 1
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("%w: maxpool layer %q pool %v does not fit input %v",
			ErrShapeMismatch, d.Name, d.PoolSize, d.InputShape)
	}
	if !d.OutputShape.Equal(tensor.Shape{c, outH, outW}) {
		return nil, fmt.Errorf("%w: maxpool layer %q declares output %v, pooling produces [%d, %d, %d]",
			ErrShapeMismatch, d.Name, d.OutputShape, c, outH, outW)
	}

	return &MaxPooling2D{
		header:       h,
		poolSize:     d.PoolSize,
		strides:      d.Strides,
		inShape:      d.InputShape.Clone(),
		indices:      make([]int32, c*outH*outW*2),
		deconvOutput: tensor.Zeros(d.InputShape),
	}, nil
}

// Feedforward pools x into the layer's output buffer, recording the
// absolute argmax coordinate of every window in the index memory.
// Ties within a window resolve to the first maximum in scan order.
func (l *MaxPooling2D) Feedforward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.Shape().Equal(l.inShape) {
		return nil, fmt.Errorf("%w: maxpool layer %q expects input %v, got %v",
			ErrShapeMismatch, l.name, l.inShape, x.Shape())
	}

	inH, inW := l.inShape[1], l.inShape[2]
	channels, outH, outW := l.output.Shape()[0], l.output.Shape()[1], l.output.Shape()[2]
	ph, pw := l.poolSize[0], l.poolSize[1]
	sh, sw := l.strides[0], l.strides[1]

	inData := x.Data()
	outData := l.output.Data()

	for c := 0; c < channels; c++ {
		channelData := inData[c*inH*inW : (c+1)*inH*inW]

		for outRow := 0; outRow < outH; outRow++ {
			hStart := outRow * sh
			for outCol := 0; outCol < outW; outCol++ {
				wStart := outCol * sw

				maxVal := channelData[hStart*inW+wStart]
				maxRow, maxCol := hStart, wStart

				for a := 0; a < ph; a++ {
					rowData := channelData[(hStart+a)*inW : (hStart+a)*inW+inW]
					for b := 0; b < pw; b++ {
						if v := rowData[wStart+b]; v > maxVal {
							maxVal = v
							maxRow, maxCol = hStart+a, wStart+b
						}
					}
				}

				outIdx := (c*outH+outRow)*outW + outCol
				outData[outIdx] = maxVal
				l.indices[outIdx*2] = int32(maxRow)
				l.indices[outIdx*2+1] = int32(maxCol)
			}
		}
	}

	return l.output, nil
}

// Deconvolve unpools x by scattering each cell's value back to the
// input coordinate recorded for it during the last Feedforward. All
// other positions are zero: the scratch buffer is cleared on every
// call. When strides are smaller than the pool size windows overlap and
// later writes silently win; that approximation is accepted.
//
// The weight argument is meaningless for pooling and must be nil. A nil
// x starts from the layer's own last forward output.
func (l *MaxPooling2D) Deconvolve(x, w *tensor.Tensor) (*tensor.Tensor, error) {
	if w != nil {
		return nil, fmt.Errorf("%w: maxpool layer %q takes no deconvolution weights",
			ErrUnsupportedOperation, l.name)
	}
	if x == nil {
		x = l.output
	}
	if !x.Shape().Equal(l.output.Shape()) {
		return nil, fmt.Errorf("%w: maxpool layer %q deconvolve expects %v, got %v",
			ErrShapeMismatch, l.name, l.output.Shape(), x.Shape())
	}

	l.deconvOutput.Zero()

	inH, inW := l.inShape[1], l.inShape[2]
	channels, outH, outW := l.output.Shape()[0], l.output.Shape()[1], l.output.Shape()[2]

	xData := x.Data()
	outData := l.deconvOutput.Data()

	for c := 0; c < channels; c++ {
		for outRow := 0; outRow < outH; outRow++ {
			for outCol := 0; outCol < outW; outCol++ {
				outIdx := (c*outH+outRow)*outW + outCol
				row := int(l.indices[outIdx*2])
				col := int(l.indices[outIdx*2+1])
				outData[c*inH*inW+row*inW+col] = xData[outIdx]
			}
		}
	}

	return l.deconvOutput, nil
}
