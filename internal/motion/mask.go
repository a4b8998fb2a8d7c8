// Package motion implements the Motion Mask Builder and Mask Cleaner
// (spec §4.2, §4.3): frame differencing plus optional learned
// background subtraction, Otsu thresholding, and ordered morphological
// cleanup with an elliptical kernel.
//
// The background-subtraction path is grounded on the ausocean video
// pipeline's MOG motion filter (other_examples/
// 62e67f02_ausocean-av__filter-mog.go.go), which wires
// gocv.NewBackgroundSubtractorMOG2WithParams and the identical
// Threshold/Erode/Dilate sequence this package follows.
package motion

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/motioncore"
	"motionpipe/internal/safemat"
)

// ErrShapeMismatch wraps a current/previous shape disagreement so
// callers can distinguish it from other BuildMask failures and react
// per spec §7 ("for shape mismatch, auto-resetting state").
var ErrShapeMismatch = errors.New("motion: shape mismatch")

// Builder produces a binary motion mask from consecutive processed
// frames. It optionally owns a learned background model (spec §4.2)
// that is lazily constructed on first use.
type Builder struct {
	opts config.MotionOptions
	bg   gocv.BackgroundSubtractorMOG2
	bgOn bool
}

// New builds a Builder. The background model, if enabled, is
// constructed lazily on the first call to BuildMask.
func New(opts config.MotionOptions) *Builder {
	return &Builder{opts: opts}
}

// Close releases the background model, if one was constructed.
func (b *Builder) Close() {
	if b.bgOn {
		b.bg.Close()
		b.bgOn = false
	}
}

// BuildMask computes the frame-diff image and the binary motion mask
// derived from it for current against previous. previous may be empty
// (first call or after reset), in which case the diff image is all
// zero, per spec §4.2. Both returned Mats are independently owned by
// the caller.
func (b *Builder) BuildMask(current, previous *safemat.Mat, diag *motioncore.Diagnostics) (diffOut, maskOut *safemat.Mat, err error) {
	if err := safemat.Validate(current, "motion.BuildMask"); err != nil {
		return nil, nil, err
	}

	diff, err := safemat.New(current.Rows(), current.Cols(), current.Type())
	if err != nil {
		return nil, nil, err
	}

	diffMat := diff.GetMat()
	if previous == nil || previous.Empty() {
		diffMat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	} else {
		if !current.SameShape(previous) {
			diff.Close()
			return nil, nil, fmt.Errorf("%w: current=%dx%dx%d previous=%dx%dx%d",
				ErrShapeMismatch,
				current.Cols(), current.Rows(), current.Channels(),
				previous.Cols(), previous.Rows(), previous.Channels())
		}
		curMat, prevMat := current.GetMat(), previous.GetMat()
		gocv.AbsDiff(curMat, prevMat, &diffMat)
	}

	if b.opts.BackgroundSubtraction {
		if err := b.orInBackgroundForeground(current, &diffMat, diag); err != nil {
			diag.RecordBackgroundFallback()
		}
	}

	mask, err := safemat.New(current.Rows(), current.Cols(), current.Type())
	if err != nil {
		diff.Close()
		return nil, nil, err
	}
	maskMat := mask.GetMat()
	gocv.Threshold(diffMat, &maskMat, 0, float32(maxThreshold(b.opts.MaxThreshold)), gocv.ThresholdBinary+gocv.ThresholdOtsu)

	return diff, mask, nil
}

func maxThreshold(v int) int {
	if v <= 0 {
		return 255
	}
	return v
}

// orInBackgroundForeground lazily builds the MOG2 model on first use
// and bitwise-ORs its foreground mask into diffMat. A malformed frame
// degrades to frame-differencing only for that frame (spec §7).
func (b *Builder) orInBackgroundForeground(current *safemat.Mat, diffMat *gocv.Mat, diag *motioncore.Diagnostics) error {
	if !b.bgOn {
		b.bg = gocv.NewBackgroundSubtractorMOG2WithParams(500, 16, false)
		b.bgOn = true
	}

	fg := gocv.NewMat()
	defer fg.Close()

	curMat := current.GetMat()
	b.bg.Apply(curMat, &fg)
	if fg.Empty() {
		return fmt.Errorf("motion: background model produced empty mask")
	}

	gocv.BitwiseOr(*diffMat, fg, diffMat)
	return nil
}

// Cleaner applies ordered morphological close/open/dilate/erode with
// an elliptical structuring element (spec §4.3), grounded on the
// teacher's applyMorphologicalOpening/Closing and the
// processing/filters/morphology.go MorphologyFilter.
type Cleaner struct {
	opts config.MorphologyOptions
}

// NewCleaner builds a Cleaner from the given options.
func NewCleaner(opts config.MorphologyOptions) *Cleaner {
	return &Cleaner{opts: opts}
}

// Clean applies the configured morphological pipeline to mask. When
// disabled, it returns a clone of mask unchanged.
func (c *Cleaner) Clean(mask *safemat.Mat) (*safemat.Mat, error) {
	if err := safemat.Validate(mask, "motion.Clean"); err != nil {
		return nil, err
	}

	if !c.opts.Enabled {
		return mask.Clone()
	}

	k := c.opts.KernelSize
	if k <= 0 {
		k = 1
	}
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: k, Y: k})
	defer kernel.Close()

	current, err := mask.Clone()
	if err != nil {
		return nil, err
	}

	steps := []struct {
		enabled bool
		apply   func(src, dst *gocv.Mat)
	}{
		{c.opts.Close, func(src, dst *gocv.Mat) { gocv.MorphologyEx(*src, dst, gocv.MorphClose, kernel) }},
		{c.opts.Open, func(src, dst *gocv.Mat) { gocv.MorphologyEx(*src, dst, gocv.MorphOpen, kernel) }},
		{c.opts.Dilate, func(src, dst *gocv.Mat) { gocv.Dilate(*src, dst, kernel) }},
		{c.opts.Erode, func(src, dst *gocv.Mat) { gocv.Erode(*src, dst, kernel) }},
	}

	for _, step := range steps {
		if !step.enabled {
			continue
		}
		next, err := safemat.New(current.Rows(), current.Cols(), current.Type())
		if err != nil {
			current.Close()
			return nil, err
		}
		curMat, nextMat := current.GetMat(), next.GetMat()
		step.apply(&curMat, &nextMat)
		current.Close()
		current = next
	}

	return current, nil
}
