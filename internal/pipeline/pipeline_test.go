package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/logger"
	"motionpipe/internal/safemat"
)

func frameWithSquare(t *testing.T, size int, rect image.Rectangle, fill uint8) *safemat.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	if !rect.Empty() {
		gocv.Rectangle(&mat, rect, color.RGBA{R: fill, G: fill, B: fill, A: 255}, -1)
	}
	sm, err := safemat.FromMat(mat, "test")
	mat.Close()
	require.NoError(t, err)
	return sm
}

func testOptions() config.Options {
	o := config.Default()
	o.Consolidation.FrameWidth = 200
	o.Consolidation.FrameHeight = 200
	return o
}

// Scenario: idempotent first frame — a freshly constructed pipeline
// yields an empty rectangle list and an empty region list.
func TestProcessFrameFirstCallIsEmpty(t *testing.T) {
	p := New(testOptions(), &logger.Noop{})
	defer p.Close()

	frame := frameWithSquare(t, 200, image.Rect(50, 50, 100, 100), 200)
	defer frame.Close()

	result, err := p.ProcessFrame(frame)
	require.NoError(t, err)
	defer result.Processed.Close()

	assert.Empty(t, result.Rectangles)
	assert.Empty(t, result.Regions)
	assert.False(t, result.HasMotion)
}

// Scenario: a static scene (identical consecutive frames) should never
// report motion once past the first call.
func TestProcessFrameStaticSceneHasNoMotion(t *testing.T) {
	p := New(testOptions(), &logger.Noop{})
	defer p.Close()

	frame := func() *safemat.Mat { return frameWithSquare(t, 200, image.Rectangle{}, 0) }

	first := frame()
	r1, err := p.ProcessFrame(first)
	require.NoError(t, err)
	r1.Processed.Close()
	first.Close()

	second := frame()
	r2, err := p.ProcessFrame(second)
	require.NoError(t, err)
	defer r2.Processed.Close()
	defer r2.Diff.Close()
	defer r2.Mask.Close()
	defer r2.Cleaned.Close()
	second.Close()

	assert.False(t, r2.HasMotion)
	assert.Empty(t, r2.Rectangles)
}

// Scenario: a moving blob between two frames should be detected.
func TestProcessFrameDetectsMovingBlob(t *testing.T) {
	opts := testOptions()
	opts.Contour.Mode = config.ContourPermissive
	opts.Morphology.Enabled = false
	p := New(opts, &logger.Noop{})
	defer p.Close()

	first := frameWithSquare(t, 200, image.Rectangle{}, 0)
	r1, err := p.ProcessFrame(first)
	require.NoError(t, err)
	r1.Processed.Close()
	first.Close()

	second := frameWithSquare(t, 200, image.Rect(60, 60, 140, 140), 255)
	r2, err := p.ProcessFrame(second)
	require.NoError(t, err)
	defer r2.Processed.Close()
	defer r2.Diff.Close()
	defer r2.Mask.Close()
	defer r2.Cleaned.Close()
	second.Close()

	assert.True(t, r2.HasMotion)
	assert.NotEmpty(t, r2.Rectangles)
	assert.NotEmpty(t, r2.Regions)
}

func TestResetClearsFirstCallState(t *testing.T) {
	opts := testOptions()
	opts.Contour.Mode = config.ContourPermissive
	p := New(opts, &logger.Noop{})
	defer p.Close()

	first := frameWithSquare(t, 200, image.Rectangle{}, 0)
	r1, err := p.ProcessFrame(first)
	require.NoError(t, err)
	r1.Processed.Close()
	first.Close()

	p.Reset()

	second := frameWithSquare(t, 200, image.Rect(10, 10, 50, 50), 255)
	defer second.Close()
	r2, err := p.ProcessFrame(second)
	require.NoError(t, err)
	defer r2.Processed.Close()

	assert.Empty(t, r2.Rectangles, "post-reset first call behaves like a fresh pipeline")
}

// Scenario: a resolution change between calls produces a shape
// mismatch against the stored previous frame. Spec §7 requires this to
// auto-reset pipeline state and still return a structurally valid,
// error-free result rather than raising to the caller.
func TestProcessFrameShapeMismatchAutoResets(t *testing.T) {
	opts := testOptions()
	opts.Contour.Mode = config.ContourPermissive
	p := New(opts, &logger.Noop{})
	defer p.Close()

	first := frameWithSquare(t, 200, image.Rect(60, 60, 140, 140), 255)
	r1, err := p.ProcessFrame(first)
	require.NoError(t, err)
	r1.Processed.Close()
	first.Close()

	second := frameWithSquare(t, 100, image.Rectangle{}, 0)
	defer second.Close()
	r2, err := p.ProcessFrame(second)
	require.NoError(t, err, "shape mismatch must never raise to the caller")
	defer r2.Processed.Close()

	assert.Empty(t, r2.Rectangles)
	assert.Empty(t, r2.Regions)
	assert.False(t, r2.HasMotion)

	third := frameWithSquare(t, 100, image.Rect(10, 10, 60, 60), 255)
	defer third.Close()
	r3, err := p.ProcessFrame(third)
	require.NoError(t, err)
	defer r3.Processed.Close()
	if r3.Diff != nil {
		defer r3.Diff.Close()
	}
	if r3.Mask != nil {
		defer r3.Mask.Close()
	}
	if r3.Cleaned != nil {
		defer r3.Cleaned.Close()
	}

	// The auto-reset already re-stored the mismatched-shape frame as
	// "previous", so normal frame-to-frame diffing resumes immediately
	// rather than bypassing another call as a fresh first frame.
	assert.True(t, r3.HasMotion)
	assert.NotEmpty(t, r3.Rectangles)
}

// Scenario: a malformed frame that the preprocessor cannot handle (here
// a 2-channel Mat, which convertColor rejects with "unsupported channel
// count") must never raise to the caller — spec §7 reserves raised
// errors for construction-time misconfiguration only.
func TestProcessFrameUnsupportedChannelCountNeverRaises(t *testing.T) {
	p := New(testOptions(), &logger.Noop{})
	defer p.Close()

	mat := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC2)
	frame, err := safemat.FromMat(mat, "test")
	mat.Close()
	require.NoError(t, err)
	defer frame.Close()

	result, err := p.ProcessFrame(frame)
	require.NoError(t, err, "an unsupported-channel-count frame must not raise to the caller")
	assert.Nil(t, result.Processed)
	assert.Empty(t, result.Rectangles)
	assert.Empty(t, result.Regions)
	assert.False(t, result.HasMotion)
}

func TestDiagnosticsSnapshotAvailable(t *testing.T) {
	p := New(testOptions(), &logger.Noop{})
	defer p.Close()
	snap := p.Diagnostics()
	assert.Equal(t, uint64(0), snap.RejectedByArea)
}
