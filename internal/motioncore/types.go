// Package motioncore holds the small value types shared across every
// pipeline stage: rectangles, tracked items, consolidated regions and
// diagnostics counters. None of these types own a Mat or any other
// resource that needs explicit cleanup.
package motioncore

import (
	"image"
	"math"
)

// Rect is an axis-aligned integer bounding box.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Area returns width*height, or 0 for an empty rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// ToImageRect converts to the standard library's image.Rectangle.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// FromImageRect builds a Rect from an image.Rectangle.
func FromImageRect(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Clamp restricts r to lie fully within [0,0,width,height), shrinking
// width/height as needed. Returns an empty rect if there's no overlap.
func (r Rect) Clamp(width, height int) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, width), min(r.Y+r.H, height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rectangle containing both r and other. If
// either is empty, the other is returned unchanged.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	x0 := min(r.X, other.X)
	y0 := min(r.Y, other.Y)
	x1 := max(r.X+r.W, other.X+other.W)
	y1 := max(r.Y+r.H, other.Y+other.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Intersection returns the overlapping region of r and other, or an
// empty Rect if they don't overlap.
func (r Rect) Intersection(other Rect) Rect {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.X+r.W, other.X+other.W)
	y1 := min(r.Y+r.H, other.Y+other.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Contains reports whether r fully contains other.
func (r Rect) Contains(other Rect) bool {
	if other.Empty() {
		return true
	}
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.W <= r.X+r.W && other.Y+other.H <= r.Y+r.H
}

// IoU returns the intersection-over-union of r and other, in [0,1].
func IoU(a, b Rect) float64 {
	inter := a.Intersection(b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// EdgeGap returns the minimum edge-to-edge distance between a and b.
// Zero if they touch or overlap.
func EdgeGap(a, b Rect) float64 {
	dx := 0
	if a.X+a.W <= b.X {
		dx = b.X - (a.X + a.W)
	} else if b.X+b.W <= a.X {
		dx = a.X - (b.X + b.W)
	}

	dy := 0
	if a.Y+a.H <= b.Y {
		dy = b.Y - (a.Y + a.H)
	} else if b.Y+b.H <= a.Y {
		dy = a.Y - (b.Y + b.H)
	}

	if dx == 0 && dy == 0 {
		return 0
	}
	// Rectangles separated diagonally: the gap is the straight-line
	// distance between the nearest edges.
	return math.Hypot(float64(dx), float64(dy))
}

// TrackedItem is a rectangle emitted by the contour extractor and
// given a fresh identity before being handed to the consolidator.
type TrackedItem struct {
	ID         int
	Bounds     Rect
	Identifier string
}

// ConsolidatedRegion is a persistent cluster of tracked items.
type ConsolidatedRegion struct {
	ID          int
	Bounds      Rect
	Members     map[int]struct{}
	StaleFrames int
}

// MemberIDs returns the member ids in ascending order.
func (c *ConsolidatedRegion) MemberIDs() []int {
	ids := make([]int, 0, len(c.Members))
	for id := range c.Members {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// AdaptiveThresholds are the cached percentile-derived contour cutoffs.
type AdaptiveThresholds struct {
	MinArea          float64
	MinSolidity      float64
	MaxAspectRatio   float64
	LastUpdatedFrame int64
}
