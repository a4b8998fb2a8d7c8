package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/safemat"
)

func colorFrame(t *testing.T, rows, cols int) *safemat.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	sm, err := safemat.FromMat(mat, "test")
	mat.Close()
	require.NoError(t, err)
	return sm
}

func TestProcessEmptyFrameYieldsEmptyResult(t *testing.T) {
	p := New(config.Default().Preprocess)
	result, err := p.Process(nil)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestProcessPreservesShape(t *testing.T) {
	p := New(config.Default().Preprocess)
	frame := colorFrame(t, 64, 48)
	defer frame.Close()

	out, err := p.Process(frame)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, frame.Rows(), out.Rows())
	assert.Equal(t, frame.Cols(), out.Cols())
}

func TestProcessGrayscaleReducesToSingleChannel(t *testing.T) {
	opts := config.Default().Preprocess
	opts.ColorMode = config.ColorGrayscale
	opts.Blur = config.BlurNone
	p := New(opts)

	frame := colorFrame(t, 32, 32)
	defer frame.Close()

	out, err := p.Process(frame)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 1, out.Channels())
}

func TestProcessPassThroughKeepsChannels(t *testing.T) {
	opts := config.Default().Preprocess
	opts.ColorMode = config.ColorPassThru
	opts.Blur = config.BlurNone
	p := New(opts)

	frame := colorFrame(t, 32, 32)
	defer frame.Close()

	out, err := p.Process(frame)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, frame.Channels(), out.Channels())
}

func TestOddAtLeastEnforcesOddMinimum(t *testing.T) {
	assert.Equal(t, 3, oddAtLeast(0, 3))
	assert.Equal(t, 5, oddAtLeast(5, 3))
	assert.Equal(t, 7, oddAtLeast(6, 3))
}

func TestProcessEachBlurKind(t *testing.T) {
	for _, kind := range []config.BlurKind{config.BlurNone, config.BlurGaussian, config.BlurMedian, config.BlurBilateral} {
		t.Run(string(kind), func(t *testing.T) {
			opts := config.Default().Preprocess
			opts.Blur = kind
			p := New(opts)

			frame := colorFrame(t, 32, 32)
			defer frame.Close()

			out, err := p.Process(frame)
			require.NoError(t, err)
			out.Close()
		})
	}
}
