package vision

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// embedInputSize is the face crop size expected by the OpenFace model.
var embedInputSize = image.Pt(96, 96)

// Model pairs the face detector cascade with the embedding network. It is
// safe for concurrent use.
type Model struct {
	mu      sync.Mutex
	cascade gocv.CascadeClassifier
	net     gocv.Net
}

// LoadModel loads the Haar cascade and the embedding network.
func LoadModel(cascadePath, modelPath string) (*Model, error) {
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cascadePath) {
		cascade.Close()
		return nil, fmt.Errorf("load face cascade %q", cascadePath)
	}
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		cascade.Close()
		return nil, fmt.Errorf("load embedding model %q", modelPath)
	}
	return &Model{cascade: cascade, net: net}, nil
}

// detect finds faces in a grayscale image.
func (m *Model) detect(gray gocv.Mat, minSize image.Point) []image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cascade.DetectMultiScaleWithParams(gray, 1.1, 5, 0, minSize, image.Point{})
}

// embed computes the descriptor of a colour face crop.
func (m *Model) embed(face gocv.Mat) ([]float32, error) {
	if face.Empty() {
		return nil, errors.New("empty face crop")
	}
	blob := gocv.BlobFromImage(face, 1.0/255.0, embedInputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	m.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read embedding: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("model returned an empty embedding")
	}
	return append([]float32(nil), data...), nil
}

// Close releases the cascade and the network.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	return errors.Join(m.cascade.Close(), m.net.Close())
}
