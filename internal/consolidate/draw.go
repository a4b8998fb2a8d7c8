package consolidate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"motionpipe/internal/motioncore"
	"motionpipe/internal/safemat"
)

var regionBoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// paintRegions draws each region's bounding box and id onto frame in
// place, for the visualization side-output spec §4.6 calls out as
// optional and separate from the core data path.
func paintRegions(frame *safemat.Mat, regions []*motioncore.ConsolidatedRegion) {
	mat := frame.GetMat()
	for _, r := range regions {
		rect := r.Bounds.ToImageRect()
		gocv.Rectangle(&mat, rect, regionBoxColor, 2)

		label := fmt.Sprintf("#%d", r.ID)
		origin := image.Pt(rect.Min.X, rect.Min.Y-6)
		if origin.Y < 0 {
			origin.Y = rect.Min.Y + 14
		}
		gocv.PutText(&mat, label, origin, gocv.FontHersheySimplex, 0.5, regionBoxColor, 1)
	}
}
