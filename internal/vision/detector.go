package vision

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"rollcall/internal/recognition"
	"rollcall/internal/scheduler"
)

// Detector finds faces in captured frames and measures each against the
// gallery.
type Detector struct {
	model       *Model
	gallery     *recognition.Gallery
	processSize image.Point
}

// NewDetector builds a detector. Detection runs on a copy of the frame
// resized to processSize; a zero size uses the full frame.
func NewDetector(model *Model, gallery *recognition.Gallery, processSize image.Point) *Detector {
	return &Detector{model: model, gallery: gallery, processSize: processSize}
}

// Detect implements scheduler.Detector. Boxes are in full-frame coordinates
// and faces are reported in cascade order.
func (d *Detector) Detect(ctx context.Context, frame scheduler.Frame) ([]recognition.Face, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("vision: unexpected frame type %T", frame)
	}
	if f.Mat.Empty() {
		return nil, ErrEmptyFrame
	}
	full := image.Pt(f.Mat.Cols(), f.Mat.Rows())

	small := f.Mat
	if d.processSize.X > 0 && d.processSize.Y > 0 && d.processSize != full {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(f.Mat, &resized, d.processSize, 0, 0, gocv.InterpolationLinear)
		small = resized
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)

	bounds := image.Rectangle{Max: full}
	rects := d.model.detect(gray, image.Pt(30, 30))
	faces := make([]recognition.Face, 0, len(rects))
	for _, r := range rects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		box := scaleRect(r, image.Pt(small.Cols(), small.Rows()), full).Intersect(bounds)
		if box.Empty() {
			continue
		}
		face := recognition.Face{Box: box}
		if !d.gallery.Empty() {
			crop := f.Mat.Region(box)
			embedding, err := d.model.embed(crop)
			crop.Close()
			if err != nil {
				return nil, err
			}
			face.Matches = d.gallery.Match(embedding)
		}
		faces = append(faces, face)
	}
	return faces, nil
}
