// Package consolidate implements the Region Consolidator (spec §4.6):
// density-based clustering of per-frame rectangles into a handful of
// persistent consolidated regions, tracked, merged and evicted across
// frames.
//
// The clustering and region-bookkeeping algorithm itself is grounded
// directly in spec.md §4.6/§9 — no pack example ships a clustering
// library with a pluggable non-Euclidean distance function, so this is
// one of the few stdlib-only parts of the tree (see DESIGN.md). The
// owned, integer-id-keyed collection shape follows the teacher's
// map-keyed algorithms.Manager idiom; unlike that type, Consolidator
// holds no mutex of its own.
package consolidate

import (
	"sort"

	"motionpipe/internal/config"
	"motionpipe/internal/motioncore"
	"motionpipe/internal/safemat"
)

// Consolidator holds the current set of consolidated regions and the
// monotonically increasing frame counter used for staleness.
type Consolidator struct {
	opts config.ConsolidationOptions

	regions  map[int]*motioncore.ConsolidatedRegion
	nextID   int
	frameNum int64
}

// New builds an empty Consolidator.
func New(opts config.ConsolidationOptions) *Consolidator {
	return &Consolidator{
		opts:    opts,
		regions: make(map[int]*motioncore.ConsolidatedRegion),
	}
}

// Reset clears all consolidator state, as Pipeline.Reset requires.
func (c *Consolidator) Reset() {
	c.regions = make(map[int]*motioncore.ConsolidatedRegion)
	c.nextID = 0
	c.frameNum = 0
}

// Regions returns the current consolidated regions, sorted by id for
// deterministic iteration.
func (c *Consolidator) Regions() []*motioncore.ConsolidatedRegion {
	out := make([]*motioncore.ConsolidatedRegion, 0, len(c.regions))
	for _, r := range c.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Consolidate runs one pass of spec §4.6's algorithm over items and
// returns the resulting consolidated regions.
func (c *Consolidator) Consolidate(items []motioncore.TrackedItem, diag *motioncore.Diagnostics) []*motioncore.ConsolidatedRegion {
	c.frameNum++

	valid := make([]motioncore.TrackedItem, 0, len(items))
	for _, it := range items {
		if !it.Bounds.Empty() {
			valid = append(valid, it)
		}
	}

	if len(valid) == 0 {
		c.advanceStaleness()
		c.evict(diag)
		return c.Regions()
	}

	clusters := c.cluster(valid)

	c.advanceStaleness()
	c.rematchExistingMembers(valid)

	newRegions := c.buildRegions(clusters)
	c.mergeOrInsert(newRegions)

	c.evict(diag)
	return c.Regions()
}

// ConsolidateWithFrame runs Consolidate and additionally draws the
// resulting regions onto a clone of frame for visualization. The
// Consolidate call advances state exactly as a plain Consolidate call
// does; the drawing step itself changes no consolidator state and
// never touches frame. It lives on a separate code path so the hot ProcessFrame call never allocates a
// visualization buffer (DESIGN NOTES §9).
func (c *Consolidator) ConsolidateWithFrame(items []motioncore.TrackedItem, frame *safemat.Mat, diag *motioncore.Diagnostics) ([]*motioncore.ConsolidatedRegion, *safemat.Mat, error) {
	regions := c.Consolidate(items, diag)

	if frame == nil || frame.Empty() {
		return regions, nil, nil
	}

	viz, err := frame.Clone()
	if err != nil {
		return regions, nil, err
	}
	drawRegions(viz, regions)
	return regions, viz, nil
}

func (c *Consolidator) advanceStaleness() {
	for _, r := range c.regions {
		r.StaleFrames++
	}
}

// rematchExistingMembers re-scans the current input for rectangles
// whose id matches a member of an existing region, updates that
// region's member set to the matched ids, recomputes its bounds and
// resets its staleness counter (spec §4.6 step 6). When an id matches
// members of two existing regions, the lower-id region wins the id
// (spec §4.6 tie-breaking).
func (c *Consolidator) rematchExistingMembers(items []motioncore.TrackedItem) {
	presentIDs := make(map[int]motioncore.Rect, len(items))
	for _, it := range items {
		presentIDs[it.ID] = it.Bounds
	}

	existingIDs := make([]int, 0, len(c.regions))
	for id := range c.regions {
		existingIDs = append(existingIDs, id)
	}
	sort.Ints(existingIDs)

	claimed := make(map[int]int) // member id -> winning region id

	for _, regionID := range existingIDs {
		region := c.regions[regionID]
		for memberID := range region.Members {
			if _, ok := presentIDs[memberID]; !ok {
				continue
			}
			if winner, ok := claimed[memberID]; ok && winner < regionID {
				continue
			}
			claimed[memberID] = regionID
		}
	}

	for _, regionID := range existingIDs {
		region := c.regions[regionID]
		final := make(map[int]struct{})
		for memberID := range region.Members {
			if claimed[memberID] == regionID {
				final[memberID] = struct{}{}
			}
		}

		if len(final) == 0 {
			continue
		}

		var bounds motioncore.Rect
		for memberID := range final {
			bounds = bounds.Union(presentIDs[memberID])
		}
		region.Members = final
		region.Bounds = bounds
		region.StaleFrames = 0
	}
}

func (c *Consolidator) evict(diag *motioncore.Diagnostics) {
	for id, r := range c.regions {
		if r.StaleFrames > c.opts.MaxFramesWithoutUpdate {
			delete(c.regions, id)
			diag.RecordStaleEviction()
		}
	}
}

func drawRegions(frame *safemat.Mat, regions []*motioncore.ConsolidatedRegion) {
	// Visualization drawing (gocv.Rectangle/PutText) happens in
	// draw.go, kept separate so this file has no gocv dependency
	// beyond the Mat type already carried by safemat.
	paintRegions(frame, regions)
}
