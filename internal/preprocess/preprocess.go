// Package preprocess implements the Frame Preprocessor (spec §4.1):
// deterministic, stateless colorspace conversion, contrast enhancement
// and blur, grounded on the teacher's algorithms/otsu core.go
// (convertToGrayscale, applyCLAHE, applyGaussianSmoothing) and
// processing/filters/{clahe,gaussian}.go.
package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/safemat"
)

// Preprocessor applies colorspace conversion, optional CLAHE and the
// configured blur variant. It holds no per-frame state.
type Preprocessor struct {
	opts config.PreprocessOptions
}

// New builds a Preprocessor from the given options.
func New(opts config.PreprocessOptions) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Process converts frame to the configured single-channel (or
// pass-through color) representation, then applies contrast
// enhancement and blur. An empty input yields an empty result rather
// than an error (spec §4.1 "rejects empty frames by returning an
// empty result").
func (p *Preprocessor) Process(frame *safemat.Mat) (*safemat.Mat, error) {
	if frame == nil || frame.Empty() {
		return &safemat.Mat{}, nil
	}

	converted, err := p.convertColor(frame)
	if err != nil {
		return nil, fmt.Errorf("preprocess: color conversion: %w", err)
	}

	enhanced := converted
	if p.opts.ContrastEnhancement {
		e, err := p.applyCLAHE(converted)
		if err != nil {
			converted.Close()
			return nil, fmt.Errorf("preprocess: clahe: %w", err)
		}
		converted.Close()
		enhanced = e
	}

	blurred, err := p.applyBlur(enhanced)
	if err != nil {
		enhanced.Close()
		return nil, fmt.Errorf("preprocess: blur: %w", err)
	}
	enhanced.Close()

	return blurred, nil
}

func (p *Preprocessor) convertColor(src *safemat.Mat) (*safemat.Mat, error) {
	if p.opts.ColorMode == config.ColorPassThru {
		return src.Clone()
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	dst, err := safemat.New(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}

	srcMat, dstMat := src.GetMat(), dst.GetMat()
	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		tmp := gocv.NewMat()
		defer tmp.Close()
		gocv.CvtColor(srcMat, &tmp, gocv.ColorBGRAToBGR)
		gocv.CvtColor(tmp, &dstMat, gocv.ColorBGRToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count %d", src.Channels())
	}
	return dst, nil
}

func (p *Preprocessor) applyCLAHE(src *safemat.Mat) (*safemat.Mat, error) {
	if src.Channels() != 1 {
		return src.Clone()
	}

	dst, err := safemat.New(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, err
	}

	clahe := gocv.NewCLAHEWithParams(p.opts.CLAHEClipLimit, image.Point{X: p.opts.CLAHETileSize, Y: p.opts.CLAHETileSize})
	defer clahe.Close()

	srcMat, dstMat := src.GetMat(), dst.GetMat()
	clahe.Apply(srcMat, &dstMat)
	return dst, nil
}

func (p *Preprocessor) applyBlur(src *safemat.Mat) (*safemat.Mat, error) {
	switch p.opts.Blur {
	case config.BlurNone, "":
		return src.Clone()

	case config.BlurGaussian:
		return p.gaussian(src)

	case config.BlurMedian:
		return p.median(src)

	case config.BlurBilateral:
		return p.bilateral(src)

	default:
		return nil, fmt.Errorf("unknown blur kind %q", p.opts.Blur)
	}
}

func (p *Preprocessor) gaussian(src *safemat.Mat) (*safemat.Mat, error) {
	k := oddAtLeast(p.opts.GaussianBlurSize, 3)
	dst, err := safemat.New(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, err
	}
	srcMat, dstMat := src.GetMat(), dst.GetMat()
	gocv.GaussianBlur(srcMat, &dstMat, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
	return dst, nil
}

func (p *Preprocessor) median(src *safemat.Mat) (*safemat.Mat, error) {
	k := oddAtLeast(p.opts.MedianBlurSize, 3)
	dst, err := safemat.New(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, err
	}
	srcMat, dstMat := src.GetMat(), dst.GetMat()
	gocv.MedianBlur(srcMat, &dstMat, k)
	return dst, nil
}

// bilateral must coerce a non-8-bit input to 8-bit before filtering,
// per spec §4.1's explicit note on the bilateral path.
func (p *Preprocessor) bilateral(src *safemat.Mat) (*safemat.Mat, error) {
	input := src
	converted := false
	if src.Type() != gocv.MatTypeCV8UC1 && src.Type() != gocv.MatTypeCV8UC3 {
		coerced, err := safemat.New(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
		if err != nil {
			return nil, err
		}
		srcMat, dstMat := src.GetMat(), coerced.GetMat()
		srcMat.ConvertTo(&dstMat, gocv.MatTypeCV8UC1)
		input = coerced
		converted = true
	}
	if converted {
		defer input.Close()
	}

	dst, err := safemat.New(input.Rows(), input.Cols(), input.Type())
	if err != nil {
		return nil, err
	}
	srcMat, dstMat := input.GetMat(), dst.GetMat()
	gocv.BilateralFilter(srcMat, &dstMat, p.opts.BilateralDiameter, p.opts.BilateralSigmaColor, p.opts.BilateralSigmaSpace)
	return dst, nil
}

func oddAtLeast(k, min int) int {
	if k < min {
		k = min
	}
	if k%2 == 0 {
		k++
	}
	return k
}
