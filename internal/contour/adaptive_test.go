package contour

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"motionpipe/internal/config"
	"motionpipe/internal/motioncore"
)

func adaptiveOptions() config.ContourOptions {
	opts := config.Default().Contour
	opts.Mode = config.ContourAdaptive
	opts.AdaptiveUpdateInterval = 5
	return opts
}

func TestEstimatorSeedsWithPermissiveValues(t *testing.T) {
	opts := adaptiveOptions()
	e := NewEstimator(opts)
	current := e.Current()
	assert.Equal(t, opts.PermissiveMinArea, current.MinArea)
	assert.Equal(t, opts.PermissiveMinSolidity, current.MinSolidity)
	assert.Equal(t, opts.PermissiveMaxAspect, current.MaxAspectRatio)
}

// Scenario: adaptive recalibration only triggers once the configured
// frame interval has elapsed, not on every call.
func TestRefreshAdaptiveRespectsInterval(t *testing.T) {
	opts := adaptiveOptions()
	e := NewEstimator(opts)
	diag := &motioncore.Diagnostics{}

	candidates := []candidate{
		{area: 200, solidity: 0.6, aspect: 2.0},
		{area: 300, solidity: 0.7, aspect: 1.5},
	}

	for frame := int64(1); frame < opts.AdaptiveUpdateInterval; frame++ {
		before := e.Current()
		e.Refresh(frame, candidates, diag)
		assert.Equal(t, before, e.Current(), "no refresh expected before frame %d", opts.AdaptiveUpdateInterval)
	}

	e.Refresh(opts.AdaptiveUpdateInterval, candidates, diag)
	assert.Equal(t, uint64(1), diag.Snapshot().AdaptiveRefreshes)
	assert.Equal(t, opts.AdaptiveUpdateInterval, e.Current().LastUpdatedFrame)
}

func TestRefreshAdaptiveFallsBackToPermissiveWhenNoCandidates(t *testing.T) {
	opts := adaptiveOptions()
	e := NewEstimator(opts)
	diag := &motioncore.Diagnostics{}

	got := e.Refresh(opts.AdaptiveUpdateInterval, nil, diag)
	assert.Equal(t, opts.PermissiveMinArea, got.MinArea)
}

func TestRefreshPermissiveModeBypassesCache(t *testing.T) {
	opts := adaptiveOptions()
	opts.Mode = config.ContourPermissive
	e := NewEstimator(opts)
	diag := &motioncore.Diagnostics{}

	got := e.Refresh(1000, []candidate{{area: 1, solidity: 1, aspect: 1}}, diag)
	assert.Equal(t, opts.PermissiveMinArea, got.MinArea)
	assert.Equal(t, uint64(0), diag.Snapshot().AdaptiveRefreshes)
}

func TestClampBounds(t *testing.T) {
	assert.Equal(t, 0.2, clamp(0.01, 0.2, 0.8))
	assert.Equal(t, 0.8, clamp(5, 0.2, 0.8))
	assert.Equal(t, 0.5, clamp(0.5, 0.2, 0.8))
}

func TestPercentileOnSortedCopy(t *testing.T) {
	values := []float64{50, 10, 30, 20, 40}
	got := percentile(values, 0.5)
	assert.InDelta(t, 30, got, 1e-9)
	// original slice must be untouched (percentile sorts a copy).
	assert.Equal(t, []float64{50, 10, 30, 20, 40}, values)
}
