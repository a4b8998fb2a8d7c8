// Package streamrunner demonstrates running one Pipeline per video
// stream with no state shared between them (spec §5: "multiple
// pipeline instances may run in parallel on disjoint frames with no
// shared state"). Its background monitor goroutine and context-driven
// shutdown are grounded on the teacher's internal/opencv/memory.Manager
// monitorMemory ticker/context idiom.
package streamrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"motionpipe/internal/config"
	"motionpipe/internal/logger"
	"motionpipe/internal/pipeline"
	"motionpipe/internal/safemat"
)

// Runner owns one *pipeline.Pipeline per stream id, each fed from its
// own goroutine and frame channel.
type Runner struct {
	log logger.Logger

	mu      sync.RWMutex
	streams map[string]*stream

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	diagInterval time.Duration
}

type stream struct {
	id     string
	pl     *pipeline.Pipeline
	frames chan *safemat.Mat
	done   chan struct{}
}

// New builds a Runner. diagInterval controls how often the monitor
// goroutine logs per-stream diagnostics snapshots; a non-positive value
// disables periodic monitoring.
func New(log logger.Logger, diagInterval time.Duration) *Runner {
	if log == nil {
		log = &logger.Noop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		log:          log,
		streams:      make(map[string]*stream),
		ctx:          ctx,
		cancel:       cancel,
		diagInterval: diagInterval,
	}
	if diagInterval > 0 {
		r.wg.Add(1)
		go r.monitor()
	}
	return r
}

// AddStream registers a new stream with its own Pipeline instance,
// built from opts, and starts its processing goroutine. The returned
// channel accepts frames for that stream; closing it (via RemoveStream
// or Shutdown) stops the goroutine.
func (r *Runner) AddStream(id string, opts config.Options) (chan<- *safemat.Mat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[id]; exists {
		return nil, fmt.Errorf("streamrunner: stream %q already registered", id)
	}

	s := &stream{
		id:     id,
		pl:     pipeline.New(opts, r.log),
		frames: make(chan *safemat.Mat, 4),
		done:   make(chan struct{}),
	}
	r.streams[id] = s

	r.wg.Add(1)
	go r.run(s)

	return s.frames, nil
}

func (r *Runner) run(s *stream) {
	defer r.wg.Done()
	defer close(s.done)
	defer s.pl.Close()

	for {
		select {
		case frame, ok := <-s.frames:
			if !ok {
				return
			}
			result, err := s.pl.ProcessFrame(frame)
			frame.Close()
			if err != nil {
				r.log.Error("streamrunner", err, map[string]interface{}{"stream": s.id})
				continue
			}
			r.closeResult(result)

		case <-r.ctx.Done():
			return
		}
	}
}

// closeResult releases every Mat the pipeline handed back once a
// caller in this demo harness is done with it; a real consumer would
// persist or inspect these before closing them.
func (r *Runner) closeResult(res pipeline.Result) {
	for _, m := range []*safemat.Mat{res.Processed, res.Diff, res.Mask, res.Cleaned} {
		if m != nil {
			m.Close()
		}
	}
}

// RemoveStream stops and unregisters a stream, closing its frame
// channel and waiting for its goroutine to exit.
func (r *Runner) RemoveStream(id string) {
	r.mu.Lock()
	s, ok := r.streams[id]
	if ok {
		delete(r.streams, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	close(s.frames)
	<-s.done
}

// Shutdown stops the monitor goroutine and every stream goroutine,
// waiting for all of them to exit.
func (r *Runner) Shutdown() {
	r.cancel()

	r.mu.Lock()
	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.RemoveStream(id)
	}
	r.wg.Wait()
}

func (r *Runner) monitor() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.diagInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.logDiagnostics()
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) logDiagnostics() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, s := range r.streams {
		snap := s.pl.Diagnostics()
		r.log.Debug("streamrunner", "stream diagnostics", map[string]interface{}{
			"stream":               id,
			"rejected_by_area":     snap.RejectedByArea,
			"rejected_by_solidity": snap.RejectedBySolidity,
			"rejected_by_aspect":   snap.RejectedByAspect,
			"adaptive_refreshes":   snap.AdaptiveRefreshes,
			"stale_evictions":      snap.StaleEvictions,
			"background_fallback":  snap.BackgroundFallback,
		})
	}
}
