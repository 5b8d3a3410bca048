package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"rollcall/internal/logging"
	"rollcall/internal/scheduler"
)

// ErrNoCamera is returned when no configured device yields a frame.
var ErrNoCamera = errors.New("no usable camera")

// ErrEmptyFrame is returned when the device produced no image.
var ErrEmptyFrame = errors.New("camera returned no frame")

// CameraSettings selects and configures the capture device.
type CameraSettings struct {
	Devices []int
	Width   int
	Height  int
	FPS     int
	Mirror  bool
}

// Frame is a captured image.
type Frame struct {
	Mat gocv.Mat
}

// Close releases the image.
func (f *Frame) Close() error { return f.Mat.Close() }

// Camera is a webcam frame source.
type Camera struct {
	capture *gocv.VideoCapture
	device  int
	mirror  bool
}

// OpenCamera tries each device in order and keeps the first that opens and
// returns a frame.
func OpenCamera(ctx context.Context, settings CameraSettings, logger *slog.Logger) (*Camera, error) {
	logger = logging.NewComponentLogger(logger, "camera")
	for _, device := range settings.Devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		capture, err := gocv.OpenVideoCapture(device)
		if err != nil {
			logger.Debug("camera device unavailable", logging.Int("device", device), logging.Error(err))
			continue
		}
		if settings.Width > 0 {
			capture.Set(gocv.VideoCaptureFrameWidth, float64(settings.Width))
		}
		if settings.Height > 0 {
			capture.Set(gocv.VideoCaptureFrameHeight, float64(settings.Height))
		}
		if settings.FPS > 0 {
			capture.Set(gocv.VideoCaptureFPS, float64(settings.FPS))
		}

		probe := gocv.NewMat()
		ok := capture.Read(&probe) && !probe.Empty()
		probe.Close()
		if !ok {
			logger.Debug("camera device returned no frame", logging.Int("device", device))
			capture.Close()
			continue
		}
		logger.Info("camera opened",
			logging.String(logging.FieldEventType, "camera_opened"),
			logging.Int("device", device),
			logging.Int("width", int(capture.Get(gocv.VideoCaptureFrameWidth))),
			logging.Int("height", int(capture.Get(gocv.VideoCaptureFrameHeight))),
		)
		return &Camera{capture: capture, device: device, mirror: settings.Mirror}, nil
	}
	return nil, fmt.Errorf("%w (tried devices %v)", ErrNoCamera, settings.Devices)
}

// Device returns the opened device index.
func (c *Camera) Device() int { return c.device }

// Read implements scheduler.Source.
func (c *Camera) Read(ctx context.Context) (scheduler.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	if c.mirror {
		gocv.Flip(mat, &mat, 1)
	}
	return &Frame{Mat: mat}, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	if c == nil || c.capture == nil {
		return nil
	}
	return c.capture.Close()
}
