package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"rollcall/internal/engine"
	"rollcall/internal/scheduler"
)

var (
	textWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	keyHelpers = "Q=quit  P=mark  S=stats  L=list  V=status"
)

// Window shows frames with their overlay and maps key presses to actions.
type Window struct {
	window *gocv.Window
	title  string
	status func() string
}

// NewWindow opens a display window. status, when set, supplies the header
// line drawn on every frame.
func NewWindow(title string, status func() string) *Window {
	return &Window{window: gocv.NewWindow(title), title: title, status: status}
}

// Show implements scheduler.Display.
func (w *Window) Show(frame scheduler.Frame, overlays []engine.Overlay) (scheduler.Action, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return scheduler.ActionNone, fmt.Errorf("vision: unexpected frame type %T", frame)
	}
	img := f.Mat
	for _, o := range overlays {
		gocv.Rectangle(&img, o.Box, bgr(o.Color), 2)
		gocv.PutText(&img, o.Text, labelOrigin(o.Box), gocv.FontHersheySimplex, 0.6, bgr(o.Color), 2)
	}
	gocv.PutText(&img, w.title, image.Pt(20, 30), gocv.FontHersheySimplex, 0.8, textWhite, 2)
	if w.status != nil {
		gocv.PutText(&img, w.status(), image.Pt(20, 60), gocv.FontHersheySimplex, 0.6, textWhite, 1)
	}
	gocv.PutText(&img, keyHelpers, image.Pt(20, img.Rows()-20), gocv.FontHersheySimplex, 0.45, textWhite, 1)

	w.window.IMShow(img)
	switch key := w.window.WaitKey(1) & 0xFF; key {
	case 'q', 'Q':
		return scheduler.ActionQuit, nil
	case 'p', 'P':
		return scheduler.ActionMark, nil
	case 's', 'S':
		return scheduler.ActionStats, nil
	case 'l', 'L':
		return scheduler.ActionGallery, nil
	case 'v', 'V':
		return scheduler.ActionStatus, nil
	}
	return scheduler.ActionNone, nil
}

// Close destroys the window.
func (w *Window) Close() error { return w.window.Close() }

// bgr swaps an RGBA overlay colour into OpenCV channel order.
func bgr(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: c.A}
}
