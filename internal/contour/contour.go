// Package contour implements the Contour Extractor and Adaptive
// Threshold Estimator (spec §4.4, §4.5): external-contour discovery,
// polygon simplification, hull-based solidity filtering, and
// percentile-driven adaptive cutoffs.
//
// Contour discovery is grounded on the ausocean MOG motion filter's
// FindContours/ContourArea loop (other_examples/
// 62e67f02_ausocean-av__filter-mog.go.go); percentile computation uses
// gonum/stat, the same library the tracking-metrics sibling repo
// (other_examples/c8c68bd6_nmichlo-norfair-go__metrics.go.go) already
// depends on for this kind of statistic.
package contour

import (
	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/motioncore"
	"motionpipe/internal/safemat"
)

// candidate is one discovered contour's raw measurements before the
// accept/reject decision.
type candidate struct {
	rect      motioncore.Rect
	area      float64
	solidity  float64
	aspect    float64
	hasHull   bool
}

// Extractor turns a cleaned mask into an ordered list of rectangles.
type Extractor struct {
	opts      config.ContourOptions
	estimator *Estimator
}

// New builds an Extractor backed by its own Estimator.
func New(opts config.ContourOptions) *Extractor {
	return &Extractor{opts: opts, estimator: NewEstimator(opts)}
}

// Thresholds exposes the estimator's current cached thresholds,
// read-only, for tests and diagnostics (spec §9 "expose read-only
// getters for tests").
func (e *Extractor) Thresholds() motioncore.AdaptiveThresholds {
	return e.estimator.Current()
}

// Extract runs the full per-contour pipeline of spec §4.4 against a
// cleaned binary mask and returns accepted rectangles in discovery
// order.
func (e *Extractor) Extract(mask *safemat.Mat, frameIndex int64, diag *motioncore.Diagnostics) ([]motioncore.Rect, error) {
	if err := safemat.Validate(mask, "contour.Extract"); err != nil {
		return nil, err
	}

	maskMat := mask.GetMat()
	contours := gocv.FindContours(maskMat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	candidates := make([]candidate, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		c, ok := e.measure(contour)
		contour.Close()
		if ok {
			candidates = append(candidates, c)
		}
	}

	thresholds := e.estimator.Refresh(frameIndex, candidates, diag)

	accepted := make([]motioncore.Rect, 0, len(candidates))
	for _, c := range candidates {
		if !e.accept(c, thresholds, diag) {
			continue
		}
		accepted = append(accepted, c.rect)
	}

	return accepted, nil
}

func (e *Extractor) measure(points gocv.PointVector) (candidate, bool) {
	area := gocv.ContourArea(points)
	if area <= 0 {
		return candidate{}, false
	}

	working := points
	approximated := false
	if e.opts.PolygonApproximation {
		perimeter := gocv.ArcLength(points, true)
		epsilon := e.opts.EpsilonFactor * perimeter
		approx := gocv.ApproxPolyDP(points, epsilon, true)
		if approx.Size() >= 3 {
			working = approx
			approximated = true
		} else {
			approx.Close()
		}
	}
	if approximated {
		defer working.Close()
	}

	var rect motioncore.Rect
	solidity := 1.0
	hasHull := false

	if e.opts.HullAnalysis {
		hullIdx := gocv.NewMat()
		gocv.ConvexHull(working, &hullIdx, false, true)
		hullPoints := gocv.NewPointVectorFromMat(hullIdx)
		hullArea := gocv.ContourArea(hullPoints)
		if hullArea > 0 {
			solidity = area / hullArea
			hasHull = true
		}
		rect = motioncore.FromImageRect(gocv.BoundingRect(hullPoints))
		hullPoints.Close()
		hullIdx.Close()
	} else {
		rect = motioncore.FromImageRect(gocv.BoundingRect(working))
	}

	if rect.W <= 0 || rect.H <= 0 {
		return candidate{}, false
	}

	return candidate{
		rect:     rect,
		area:     area,
		solidity: solidity,
		aspect:   float64(rect.W) / float64(rect.H),
		hasHull:  hasHull,
	}, true
}

func (e *Extractor) accept(c candidate, t motioncore.AdaptiveThresholds, diag *motioncore.Diagnostics) bool {
	if c.area < t.MinArea {
		diag.RejectByArea()
		return false
	}

	if e.opts.Filtering {
		if e.opts.HullAnalysis && c.hasHull && c.solidity < t.MinSolidity {
			diag.RejectBySolidity()
			return false
		}
		if c.aspect > t.MaxAspectRatio {
			diag.RejectByAspect()
			return false
		}
	}

	return true
}

// permissiveThresholds returns the configured fixed low-strictness
// cutoffs spec §4.5 calls for in permissive mode.
func permissiveThresholds(opts config.ContourOptions) motioncore.AdaptiveThresholds {
	return motioncore.AdaptiveThresholds{
		MinArea:        opts.PermissiveMinArea,
		MinSolidity:    opts.PermissiveMinSolidity,
		MaxAspectRatio: opts.PermissiveMaxAspect,
	}
}
