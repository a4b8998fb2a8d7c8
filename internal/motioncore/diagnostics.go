package motioncore

import "sync/atomic"

// Diagnostics holds the counters spec'd as available-on-request but
// never on the hot per-frame return path: rejection reasons, adaptive
// refresh events and stale-region evictions.
type Diagnostics struct {
	rejectedByArea     atomic.Uint64
	rejectedBySolidity atomic.Uint64
	rejectedByAspect   atomic.Uint64
	adaptiveRefreshes  atomic.Uint64
	staleEvictions     atomic.Uint64
	backgroundFallback atomic.Uint64
}

func (d *Diagnostics) RejectByArea() {
	if d != nil {
		d.rejectedByArea.Add(1)
	}
}

func (d *Diagnostics) RejectBySolidity() {
	if d != nil {
		d.rejectedBySolidity.Add(1)
	}
}

func (d *Diagnostics) RejectByAspect() {
	if d != nil {
		d.rejectedByAspect.Add(1)
	}
}

func (d *Diagnostics) RecordAdaptiveRefresh() {
	if d != nil {
		d.adaptiveRefreshes.Add(1)
	}
}

func (d *Diagnostics) RecordStaleEviction() {
	if d != nil {
		d.staleEvictions.Add(1)
	}
}

func (d *Diagnostics) RecordBackgroundFallback() {
	if d != nil {
		d.backgroundFallback.Add(1)
	}
}

// Snapshot is a point-in-time copy of the counters, safe to log or
// expose over a status endpoint.
type Snapshot struct {
	RejectedByArea     uint64
	RejectedBySolidity uint64
	RejectedByAspect   uint64
	AdaptiveRefreshes  uint64
	StaleEvictions     uint64
	BackgroundFallback uint64
}

func (d *Diagnostics) Snapshot() Snapshot {
	return Snapshot{
		RejectedByArea:     d.rejectedByArea.Load(),
		RejectedBySolidity: d.rejectedBySolidity.Load(),
		RejectedByAspect:   d.rejectedByAspect.Load(),
		AdaptiveRefreshes:  d.adaptiveRefreshes.Load(),
		StaleEvictions:     d.staleEvictions.Load(),
		BackgroundFallback: d.backgroundFallback.Load(),
	}
}
