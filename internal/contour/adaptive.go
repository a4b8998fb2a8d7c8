package contour

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"motionpipe/internal/config"
	"motionpipe/internal/motioncore"
)

// Estimator is the Adaptive Threshold Estimator (spec §4.5): a small
// pipeline-scoped cache of percentile-derived contour cutoffs,
// refreshed on a frame interval. It is "global-feeling but actually
// pipeline-scoped" per DESIGN NOTES §9, so it lives as a plain struct
// rather than package-level state.
type Estimator struct {
	opts config.ContourOptions

	mu    sync.RWMutex
	cache motioncore.AdaptiveThresholds
}

// NewEstimator builds an Estimator seeded with the permissive values
// so the very first frames (before any refresh) still produce sane
// cutoffs.
func NewEstimator(opts config.ContourOptions) *Estimator {
	return &Estimator{
		opts:  opts,
		cache: permissiveThresholds(opts),
	}
}

// Current returns the cached thresholds without triggering a refresh.
func (e *Estimator) Current() motioncore.AdaptiveThresholds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cache
}

// Refresh applies the mode semantics of spec §4.5: adaptive mode
// recomputes from contours when the update interval has elapsed and
// otherwise returns the cache; permissive and fixed modes bypass the
// cache entirely and use the configured values directly.
func (e *Estimator) Refresh(frameIndex int64, candidates []candidate, diag *motioncore.Diagnostics) motioncore.AdaptiveThresholds {
	switch e.opts.Mode {
	case config.ContourPermissive, config.ContourFixed:
		return permissiveThresholds(e.opts)

	default: // config.ContourAdaptive
		return e.refreshAdaptive(frameIndex, candidates, diag)
	}
}

func (e *Estimator) refreshAdaptive(frameIndex int64, candidates []candidate, diag *motioncore.Diagnostics) motioncore.AdaptiveThresholds {
	e.mu.Lock()
	defer e.mu.Unlock()

	if frameIndex-e.cache.LastUpdatedFrame < e.opts.AdaptiveUpdateInterval {
		return e.cache
	}

	next := motioncore.AdaptiveThresholds{LastUpdatedFrame: frameIndex}

	positiveAreas := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		if c.area > 0 {
			positiveAreas = append(positiveAreas, c.area)
		}
	}
	if len(positiveAreas) == 0 {
		next.MinArea = e.opts.PermissiveMinArea
	} else {
		next.MinArea = clamp(percentile(positiveAreas, 0.10), 50, 1000)
	}

	var solidities, aspects []float64
	for _, c := range candidates {
		if c.area >= 100 {
			solidities = append(solidities, c.solidity)
			aspects = append(aspects, c.aspect)
		}
	}
	if len(solidities) == 0 {
		next.MinSolidity = clamp(e.opts.PermissiveMinSolidity, 0.2, 0.8)
	} else {
		next.MinSolidity = clamp(percentile(solidities, 0.25), 0.2, 0.8)
	}
	if len(aspects) == 0 {
		next.MaxAspectRatio = clamp(e.opts.PermissiveMaxAspect, 2.0, 15.0)
	} else {
		next.MaxAspectRatio = clamp(percentile(aspects, 0.90), 2.0, 15.0)
	}

	e.cache = next
	diag.RecordAdaptiveRefresh()
	return e.cache
}

func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
