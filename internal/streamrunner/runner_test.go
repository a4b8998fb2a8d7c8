package streamrunner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/logger"
	"motionpipe/internal/safemat"
)

func testFrame(t *testing.T) *safemat.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
	sm, err := safemat.FromMat(mat, "test")
	mat.Close()
	require.NoError(t, err)
	return sm
}

func TestAddStreamRejectsDuplicateID(t *testing.T) {
	r := New(&logger.Noop{}, 0)
	defer r.Shutdown()

	_, err := r.AddStream("cam1", config.Default())
	require.NoError(t, err)

	_, err = r.AddStream("cam1", config.Default())
	assert.Error(t, err)
}

func TestStreamProcessesFramesIndependently(t *testing.T) {
	r := New(&logger.Noop{}, 0)
	defer r.Shutdown()

	frames, err := r.AddStream("cam1", config.Default())
	require.NoError(t, err)

	frame := testFrame(t)
	frames <- frame

	// Give the stream goroutine a moment to drain the channel; this is
	// a demo harness, not a synchronous API, so there is no call to
	// block on here.
	time.Sleep(50 * time.Millisecond)

	r.RemoveStream("cam1")
}

func TestShutdownStopsAllStreams(t *testing.T) {
	r := New(&logger.Noop{}, 0)

	_, err := r.AddStream("a", config.Default())
	require.NoError(t, err)
	_, err = r.AddStream("b", config.Default())
	require.NoError(t, err)

	r.Shutdown()
}
