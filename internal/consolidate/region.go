package consolidate

import "motionpipe/internal/motioncore"

// buildRegions turns each cluster into a candidate region: bounds are
// the union of member rectangles, expanded by ExpansionFactor and
// clamped to the configured frame size (spec §4.6 "expand then
// clamp" — clamping after expansion, not before, so a cluster against
// a frame edge still gets its full expansion on the side that has
// room).
func (c *Consolidator) buildRegions(clusters [][]motioncore.TrackedItem) []*motioncore.ConsolidatedRegion {
	out := make([]*motioncore.ConsolidatedRegion, 0, len(clusters))
	for _, members := range clusters {
		var bounds motioncore.Rect
		memberIDs := make(map[int]struct{}, len(members))
		for _, m := range members {
			bounds = bounds.Union(m.Bounds)
			memberIDs[m.ID] = struct{}{}
		}

		expanded := expand(bounds, c.opts.ExpansionFactor)
		clamped := expanded.Clamp(c.opts.FrameWidth, c.opts.FrameHeight)
		if clamped.Empty() {
			clamped = bounds.Clamp(c.opts.FrameWidth, c.opts.FrameHeight)
		}

		out = append(out, &motioncore.ConsolidatedRegion{
			Bounds:  clamped,
			Members: memberIDs,
		})
	}
	return out
}

func expand(r motioncore.Rect, factor float64) motioncore.Rect {
	if r.Empty() || factor <= 1.0 {
		return r
	}
	newW := int(float64(r.W) * factor)
	newH := int(float64(r.H) * factor)
	dw := (newW - r.W) / 2
	dh := (newH - r.H) / 2
	return motioncore.Rect{X: r.X - dw, Y: r.Y - dh, W: newW, H: newH}
}

// mergeOrInsert reconciles freshly built candidate regions against the
// regions that survived rematchExistingMembers. A candidate that
// overlaps an existing region above MergeOverlapRatio is merged into
// it (member union, bounds union, staleness reset); otherwise it is
// inserted as a brand-new region. When a candidate overlaps more than
// one existing region above the ratio, the lowest-id region wins (spec
// §4.6 tie-breaking); the other overlapping regions are left as they
// are.
func (c *Consolidator) mergeOrInsert(candidates []*motioncore.ConsolidatedRegion) {
	existingIDs := make([]int, 0, len(c.regions))
	for id := range c.regions {
		existingIDs = append(existingIDs, id)
	}

	for _, cand := range candidates {
		target := -1
		for _, id := range existingIDs {
			existing := c.regions[id]
			if overlapRatio(cand.Bounds, existing.Bounds) < c.opts.MergeOverlapRatio {
				continue
			}
			if target == -1 || id < target {
				target = id
			}
		}

		if target == -1 {
			id := c.nextID
			c.nextID++
			cand.ID = id
			c.regions[id] = cand
			existingIDs = append(existingIDs, id)
			continue
		}

		existing := c.regions[target]
		for memberID := range cand.Members {
			existing.Members[memberID] = struct{}{}
		}
		existing.Bounds = existing.Bounds.Union(cand.Bounds)
		existing.StaleFrames = 0
	}
}

// overlapRatio is intersection area over the smaller rectangle's area,
// so a small region fully inside a large one always counts as merged
// regardless of which side of the ratio check it's measured from.
func overlapRatio(a, b motioncore.Rect) float64 {
	inter := a.Intersection(b).Area()
	if inter == 0 {
		return 0
	}
	smaller := a.Area()
	if b.Area() < smaller {
		smaller = b.Area()
	}
	if smaller == 0 {
		return 0
	}
	return float64(inter) / float64(smaller)
}
