package geometry

import (
	"math"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

// DefaultDetectorMaxSide is the longest side, in pixels, of the copy the
// detector analyzes
const DefaultDetectorMaxSide = 1600

// Scale returns the factor that maps detector coordinates back onto an image
// of the given true size. Images already within maxSide are analyzed as-is.
func Scale(trueWidth, trueHeight, maxSide int) float64 {
	long := max(trueWidth, trueHeight)
	if long <= 0 || maxSide <= 0 {
		return 1
	}
	return float64(long) / float64(min(maxSide, long))
}

// Project maps a detector bounding box onto the original image and clamps it
// to the image bounds
func Project(raw models.BoundingBox, trueWidth, trueHeight, maxSide int) models.BoundingBox {
	s := Scale(trueWidth, trueHeight, maxSide)
	scaled := models.BoundingBox{
		X1: round(float64(raw.X1) * s),
		Y1: round(float64(raw.Y1) * s),
		X2: round(float64(raw.X2) * s),
		Y2: round(float64(raw.Y2) * s),
	}
	return Clamp(scaled, trueWidth, trueHeight)
}

// Clamp keeps the origin inside [0, dim) and shrinks the extent so the box
// never leaves the image. Width and height are at least 1px.
func Clamp(b models.BoundingBox, width, height int) models.BoundingBox {
	x, w := clampAxis(b.X1, b.X2-b.X1, width)
	y, h := clampAxis(b.Y1, b.Y2-b.Y1, height)
	return models.BoundingBox{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

func clampAxis(origin, extent, limit int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	origin = min(max(origin, 0), limit-1)
	if origin+extent > limit {
		extent = limit - origin
	}
	if extent < 1 {
		extent = 1
	}
	return origin, extent
}

func round(v float64) int {
	return int(math.Round(v))
}
