package consolidate

import (
	"motionpipe/internal/config"
	"motionpipe/internal/motioncore"
)

// distance combines an overlap component and a normalized, clamped
// edge-gap component into a single value in [0,1], lower meaning
// closer (spec §4.6): 0 for coincident or fully-overlapping
// rectangles, approaching 1 as rectangles both fail to overlap and
// sit far apart relative to maxEdgeDistance.
func distance(a, b motioncore.Rect, opts config.ConsolidationOptions) float64 {
	overlapComponent := 1 - motioncore.IoU(a, b)

	gap := motioncore.EdgeGap(a, b)
	edgeComponent := gap / opts.MaxEdgeDistance
	if edgeComponent > 1 {
		edgeComponent = 1
	}

	d := opts.OverlapWeight*overlapComponent + opts.EdgeWeight*edgeComponent
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// cluster runs a DBSCAN-shaped density clustering pass over items
// using the combined overlap+edge-gap distance and the configured
// Eps/MinPoints, per spec §4.6. Items that end up as noise (no
// sufficiently dense neighborhood) are returned as singleton clusters
// of their own rather than dropped, since spec §4.6 requires every
// valid tracked item to end up in some consolidated region.
func (c *Consolidator) cluster(items []motioncore.TrackedItem) [][]motioncore.TrackedItem {
	n := len(items)
	if n == 0 {
		return nil
	}

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if distance(items[i].Bounds, items[j].Bounds, c.opts) <= c.opts.Eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	const unvisited, noise = -1, -2
	label := make([]int, n)
	for i := range label {
		label[i] = unvisited
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if label[i] != unvisited {
			continue
		}

		if len(neighbors[i])+1 < c.opts.MinPoints {
			label[i] = noise
			continue
		}

		label[i] = clusterID
		seeds := append([]int(nil), neighbors[i]...)
		for k := 0; k < len(seeds); k++ {
			j := seeds[k]
			if label[j] == noise {
				label[j] = clusterID
			}
			if label[j] != unvisited {
				continue
			}
			label[j] = clusterID
			if len(neighbors[j])+1 >= c.opts.MinPoints {
				seeds = append(seeds, neighbors[j]...)
			}
		}
		clusterID++
	}

	groups := make(map[int][]motioncore.TrackedItem)
	for i, l := range label {
		if l == noise {
			groups[clusterID] = []motioncore.TrackedItem{items[i]}
			clusterID++
			continue
		}
		groups[l] = append(groups[l], items[i])
	}

	out := make([][]motioncore.TrackedItem, 0, len(groups))
	for id := 0; id < clusterID; id++ {
		if g, ok := groups[id]; ok {
			out = append(out, g)
		}
	}
	return out
}
