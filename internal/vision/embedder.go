package vision

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrNoFace is returned when a reference image contains no detectable face.
var ErrNoFace = errors.New("no face detected in reference image")

// variant derives one augmented copy of a face crop.
type variant func(src gocv.Mat, dst *gocv.Mat)

// augmentations lists the reference variants in the order they are applied.
var augmentations = []variant{
	brightness(1.2),
	brightness(0.8),
	contrast(1.3),
	rotate(-5),
	rotate(5),
	blur,
	zoom(1.05),
	zoom(0.95),
	mirror,
}

// Embedder turns reference images into gallery embeddings.
type Embedder struct {
	model *Model
	count int
}

// NewEmbedder returns an embedder producing up to count augmented variants
// per image when augmentation is requested.
func NewEmbedder(model *Model, count int) *Embedder {
	if count < 0 {
		count = 0
	}
	return &Embedder{model: model, count: min(count, len(augmentations))}
}

// Variants returns how many augmented variants are added per image.
func (e *Embedder) Variants() int { return e.count }

// Embed implements recognition.Embedder. The first embedding is always the
// unmodified face crop.
func (e *Embedder) Embed(ctx context.Context, imagePath string, augment bool) ([][]float32, error) {
	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("read image %q", imagePath)
	}
	defer img.Close()

	size := image.Pt(img.Cols(), img.Rows())
	if fit := fitWithin(size, maxReferenceSide); fit != size {
		gocv.Resize(img, &img, fit, 0, 0, gocv.InterpolationArea)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	rects := e.model.detect(gray, image.Pt(100, 100))
	if len(rects) == 0 {
		return nil, ErrNoFace
	}
	crop := img.Region(rects[0])
	defer crop.Close()
	face := crop.Clone()
	defer face.Close()

	base, err := e.model.embed(face)
	if err != nil {
		return nil, err
	}
	out := [][]float32{base}
	if !augment {
		return out, nil
	}
	for _, apply := range augmentations[:e.count] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := gocv.NewMat()
		apply(face, &dst)
		embedding, err := e.model.embed(dst)
		dst.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, embedding)
	}
	return out, nil
}

func brightness(factor float32) variant {
	return func(src gocv.Mat, dst *gocv.Mat) {
		src.ConvertToWithParams(dst, src.Type(), factor, 0)
	}
}

func contrast(factor float32) variant {
	return func(src gocv.Mat, dst *gocv.Mat) {
		mean := src.Mean()
		avg := (mean.Val1 + mean.Val2 + mean.Val3) / 3
		src.ConvertToWithParams(dst, src.Type(), factor, float32(avg)*(1-factor))
	}
}

func rotate(angle float64) variant {
	return affine(angle, 1)
}

func zoom(scale float64) variant {
	return affine(0, scale)
}

func affine(angle, scale float64) variant {
	return func(src gocv.Mat, dst *gocv.Mat) {
		center := image.Pt(src.Cols()/2, src.Rows()/2)
		m := gocv.GetRotationMatrix2D(center, angle, scale)
		defer m.Close()
		gocv.WarpAffine(src, dst, m, image.Pt(src.Cols(), src.Rows()))
	}
}

func blur(src gocv.Mat, dst *gocv.Mat) {
	gocv.GaussianBlur(src, dst, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
}

func mirror(src gocv.Mat, dst *gocv.Mat) {
	gocv.Flip(src, dst, 1)
}
