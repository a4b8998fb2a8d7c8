package motioncore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectEmpty(t *testing.T) {
	assert.True(t, Rect{}.Empty())
	assert.True(t, Rect{X: 1, Y: 1, W: 0, H: 5}.Empty())
	assert.False(t, Rect{X: 0, Y: 0, W: 1, H: 1}.Empty())
}

func TestRectArea(t *testing.T) {
	assert.Equal(t, 0, Rect{}.Area())
	assert.Equal(t, 50, Rect{X: 1, Y: 1, W: 5, H: 10}.Area())
}

func TestRectClamp(t *testing.T) {
	r := Rect{X: -5, Y: -5, W: 20, H: 20}
	clamped := r.Clamp(10, 10)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 10, H: 10}, clamped)

	outside := Rect{X: 100, Y: 100, W: 5, H: 5}
	assert.True(t, outside.Clamp(10, 10).Empty())
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	union := a.Union(b)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 15, H: 15}, union)

	assert.Equal(t, a, a.Union(Rect{}))
	assert.Equal(t, b, Rect{}.Union(b))
}

func TestRectIntersectionAndContains(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	inter := a.Intersection(b)
	assert.Equal(t, Rect{X: 5, Y: 5, W: 5, H: 5}, inter)

	assert.True(t, a.Contains(Rect{X: 1, Y: 1, W: 2, H: 2}))
	assert.False(t, a.Contains(b))

	disjoint := Rect{X: 100, Y: 100, W: 1, H: 1}
	assert.True(t, a.Intersection(disjoint).Empty())
}

func TestIoURange(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}

	assert.Equal(t, 1.0, IoU(a, a))
	assert.Equal(t, 0.0, IoU(a, Rect{X: 100, Y: 100, W: 10, H: 10}))

	b := Rect{X: 5, Y: 0, W: 10, H: 10}
	got := IoU(a, b)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestIoUSymmetric(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 3, Y: 4, W: 8, H: 6}
	assert.Equal(t, IoU(a, b), IoU(b, a))
}

func TestEdgeGapZeroWhenOverlapping(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	assert.Equal(t, 0.0, EdgeGap(a, b))
}

func TestEdgeGapAxisAligned(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 20, Y: 0, W: 10, H: 10}
	assert.Equal(t, 10.0, EdgeGap(a, b))
}

func TestEdgeGapDiagonal(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 20, Y: 20, W: 10, H: 10}
	// nearest corners are (10,10) and (20,20): straight-line gap is
	// hypot(10,10).
	assert.InDelta(t, 14.142, EdgeGap(a, b), 0.01)
}

func TestEdgeGapSymmetric(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 5, H: 5}
	b := Rect{X: 30, Y: 12, W: 4, H: 4}
	assert.Equal(t, EdgeGap(a, b), EdgeGap(b, a))
}

func TestConsolidatedRegionMemberIDs(t *testing.T) {
	r := &ConsolidatedRegion{Members: map[int]struct{}{5: {}, 1: {}, 3: {}}}
	assert.Equal(t, []int{1, 3, 5}, r.MemberIDs())
}
