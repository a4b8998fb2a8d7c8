// Package pipeline implements the Pipeline Orchestrator (spec §4.7):
// the single entry type that sequences preprocessing, motion masking,
// mask cleanup, contour extraction and region consolidation over a
// stream of frames, owning all per-stream state itself.
//
// The validate → stage → log shape and the ownership of long-lived
// state as explicit struct fields (rather than shared globals) is
// grounded on the teacher's internal/pipeline/processor.go
// (imageProcessor.ProcessImageWithContext) and
// internal/pipeline/coordinator.go.
package pipeline

import (
	"errors"
	"fmt"

	"motionpipe/internal/config"
	"motionpipe/internal/consolidate"
	"motionpipe/internal/contour"
	"motionpipe/internal/logger"
	"motionpipe/internal/motion"
	"motionpipe/internal/motioncore"
	"motionpipe/internal/preprocess"
	"motionpipe/internal/safemat"
)

// Result is the full per-call output of ProcessFrame: the processed
// frame plus every intermediate artifact a caller may want to log,
// persist or hand to a downstream classifier (spec §4.7).
type Result struct {
	Processed  *safemat.Mat
	Diff       *safemat.Mat
	Mask       *safemat.Mat
	Cleaned    *safemat.Mat
	Rectangles []motioncore.Rect
	Regions    []*motioncore.ConsolidatedRegion
	HasMotion  bool
}

// Pipeline owns one stream's worth of state: the previous processed
// frame, the background model, the consolidator and the adaptive
// threshold cache. A Pipeline must not be shared across goroutines or
// streams (spec §5): each instance exclusively owns its state and
// callers serialize calls to a single instance.
type Pipeline struct {
	opts config.Options
	log  logger.Logger

	preprocessor *preprocess.Preprocessor
	maskBuilder  *motion.Builder
	cleaner      *motion.Cleaner
	extractor    *contour.Extractor
	consolidator *consolidate.Consolidator

	diag *motioncore.Diagnostics

	previous  *safemat.Mat
	frameNum  int64
	nextItem  int
	firstCall bool
}

// New constructs a Pipeline from validated options. opts must already
// have passed Validate (spec §7 treats misconfiguration as a
// construction-time failure, not a per-frame one); New does not
// re-validate.
func New(opts config.Options, log logger.Logger) *Pipeline {
	if log == nil {
		log = &logger.Noop{}
	}
	return &Pipeline{
		opts:         opts,
		log:          log,
		preprocessor: preprocess.New(opts.Preprocess),
		maskBuilder:  motion.New(opts.Motion),
		cleaner:      motion.NewCleaner(opts.Morphology),
		extractor:    contour.New(opts.Contour),
		consolidator: consolidate.New(opts.Consolidation),
		diag:         &motioncore.Diagnostics{},
		firstCall:    true,
	}
}

// Diagnostics returns a point-in-time snapshot of the rejection and
// refresh counters, available on request and never on the hot return
// path (spec §7).
func (p *Pipeline) Diagnostics() motioncore.Snapshot {
	return p.diag.Snapshot()
}

// Close releases any resources the pipeline's stages hold (the
// background subtraction model, the stored previous frame).
func (p *Pipeline) Close() {
	p.maskBuilder.Close()
	if p.previous != nil {
		p.previous.Close()
		p.previous = nil
	}
}

// Reset clears the previous-frame slot, background model, consolidator
// state and threshold cache, per spec §4.7.
func (p *Pipeline) Reset() {
	p.resetState()
	p.frameNum = 0
	p.nextItem = 0
	p.firstCall = true
}

// resetState clears the previous-frame slot, background model,
// consolidator state and threshold cache without touching the frame
// counters or firstCall, so it can also back the §7 auto-reset a
// shape-mismatch triggers mid-stream (which must not replay the
// idempotent-first-frame contract on the caller).
func (p *Pipeline) resetState() {
	p.maskBuilder.Close()
	p.maskBuilder = motion.New(p.opts.Motion)
	if p.previous != nil {
		p.previous.Close()
		p.previous = nil
	}
	p.consolidator.Reset()
	p.extractor = contour.New(p.opts.Contour)
}

// ProcessFrame runs the full sequence of spec §4.7 against frame:
// preprocess, build motion mask, clean it, extract contours, wrap them
// as tracked items, consolidate, then store the processed frame as the
// next call's previous frame.
//
// On the very first call after construction or Reset, the processed
// frame is stored and returned with empty mask and empty lists (spec
// §4.7, §8 "idempotent first frame"), since there is no previous frame
// to diff against yet.
func (p *Pipeline) ProcessFrame(frame *safemat.Mat) (Result, error) {
	processed, err := p.preprocessor.Process(frame)
	if err != nil {
		// Spec §7: per-frame processing never raises to the caller;
		// it returns a structurally valid result with empty lists.
		// Only construction-time misconfiguration (config.Validate)
		// is allowed to surface an error.
		p.log.Error("pipeline", err, map[string]interface{}{"stage": "preprocess"})
		return Result{}, nil
	}

	if p.firstCall {
		p.firstCall = false
		p.frameNum++
		p.storePrevious(processed)
		return Result{Processed: processed}, nil
	}

	diff, mask, err := p.maskBuilder.BuildMask(processed, p.previous, p.diag)
	if err != nil {
		if errors.Is(err, motion.ErrShapeMismatch) {
			// Spec §7: a shape mismatch against the stored previous
			// frame auto-resets consolidator/background/threshold
			// state rather than silently repairing the mismatch.
			p.log.Warning("pipeline", "shape mismatch, auto-resetting state", map[string]interface{}{"error": err.Error()})
			p.resetState()
		} else {
			p.log.Warning("pipeline", "motion mask failed", map[string]interface{}{"error": err.Error()})
		}
		p.storePrevious(processed)
		return Result{Processed: processed}, nil
	}

	cleaned, err := p.cleaner.Clean(mask)
	if err != nil {
		p.log.Warning("pipeline", "mask cleanup failed", map[string]interface{}{"error": err.Error()})
		diff.Close()
		mask.Close()
		p.storePrevious(processed)
		return Result{Processed: processed}, nil
	}

	p.frameNum++
	rects, err := p.extractor.Extract(cleaned, p.frameNum, p.diag)
	if err != nil {
		p.log.Warning("pipeline", "contour extraction failed", map[string]interface{}{"error": err.Error()})
		diff.Close()
		mask.Close()
		cleaned.Close()
		p.storePrevious(processed)
		return Result{Processed: processed}, nil
	}

	items := make([]motioncore.TrackedItem, 0, len(rects))
	for _, r := range rects {
		items = append(items, motioncore.TrackedItem{
			ID:         p.nextItem,
			Bounds:     r,
			Identifier: fmt.Sprintf("item-%d", p.nextItem),
		})
		p.nextItem++
	}

	regions := p.consolidator.Consolidate(items, p.diag)

	p.storePrevious(processed)

	return Result{
		Processed:  processed,
		Diff:       diff,
		Mask:       mask,
		Cleaned:    cleaned,
		Rectangles: rects,
		Regions:    regions,
		HasMotion:  len(rects) > 0,
	}, nil
}

func (p *Pipeline) storePrevious(processed *safemat.Mat) {
	if p.previous != nil {
		p.previous.Close()
	}
	clone, err := processed.Clone()
	if err != nil {
		p.previous = nil
		return
	}
	p.previous = clone
}
