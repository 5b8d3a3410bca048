package vision

import "image"

// maxReferenceSide bounds the long side of a reference image before
// detection.
const maxReferenceSide = 1000

// fitWithin returns size scaled down so its longer side is at most limit.
// Sizes already within the limit are returned unchanged.
func fitWithin(size image.Point, limit int) image.Point {
	long := max(size.X, size.Y)
	if limit <= 0 || long <= limit {
		return size
	}
	scale := float64(limit) / float64(long)
	return image.Pt(max(1, int(float64(size.X)*scale)), max(1, int(float64(size.Y)*scale)))
}

// scaleRect maps r from a frame of size from onto a frame of size to.
func scaleRect(r image.Rectangle, from, to image.Point) image.Rectangle {
	if from.X <= 0 || from.Y <= 0 || from == to {
		return r
	}
	sx := float64(to.X) / float64(from.X)
	sy := float64(to.Y) / float64(from.Y)
	return image.Rect(
		int(float64(r.Min.X)*sx),
		int(float64(r.Min.Y)*sy),
		int(float64(r.Max.X)*sx),
		int(float64(r.Max.Y)*sy),
	)
}

// labelOrigin places overlay text above a box, or inside it at the top edge.
func labelOrigin(box image.Rectangle) image.Point {
	if box.Min.Y >= 15 {
		return image.Pt(box.Min.X, box.Min.Y-10)
	}
	return image.Pt(box.Min.X, box.Min.Y+15)
}
