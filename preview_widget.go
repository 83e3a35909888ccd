package main

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom = 0.25
	maxZoom = 6.0
)

// PlanView shows rendered frames of a trajectory and lets the user pan
// (drag) and zoom (scroll, +/-). Double-tap or space resets the view.
type PlanView struct {
	widget.BaseWidget

	frame image.Image
	size  fyne.Size // last layout size

	zoom   float32
	offset fyne.Position // pan in widget pixels
}

// NewPlanView creates an empty view
func NewPlanView() *PlanView {
	v := &PlanView{zoom: 1}
	v.ExtendBaseWidget(v)
	return v
}

// SetFrame replaces the displayed frame, keeping the current pan and zoom.
func (v *PlanView) SetFrame(img image.Image) {
	v.frame = img
	v.Refresh()
}

// ResetView centres the frame at zoom 1.
func (v *PlanView) ResetView() {
	v.zoom = 1
	v.offset = fyne.NewPos(0, 0)
	v.Refresh()
}

// ZoomBy multiplies the zoom level, clamped to [minZoom, maxZoom], keeping
// the view centre fixed.
func (v *PlanView) ZoomBy(factor float32) {
	old := v.zoom
	v.zoom *= factor
	if v.zoom < minZoom {
		v.zoom = minZoom
	} else if v.zoom > maxZoom {
		v.zoom = maxZoom
	}
	if v.zoom != old {
		k := v.zoom / old
		v.offset = fyne.NewPos(v.offset.X*k, v.offset.Y*k)
	}
	v.Refresh()
}

// Zoom returns the current zoom level.
func (v *PlanView) Zoom() float32 {
	return v.zoom
}

// frameRect returns where the frame is drawn inside a widget of size s: the
// frame is fitted to the widget, then zoomed about the centre and panned.
func (v *PlanView) frameRect(s fyne.Size) (fyne.Position, fyne.Size) {
	if v.frame == nil || s.Width == 0 || s.Height == 0 {
		return fyne.NewPos(0, 0), fyne.NewSize(0, 0)
	}
	b := v.frame.Bounds()
	fw, fh := float32(b.Dx()), float32(b.Dy())
	fit := s.Width / fw
	if h := s.Height / fh; h < fit {
		fit = h
	}
	w, h := fw*fit*v.zoom, fh*fit*v.zoom
	return fyne.NewPos((s.Width-w)/2+v.offset.X, (s.Height-h)/2+v.offset.Y), fyne.NewSize(w, h)
}

func (v *PlanView) Dragged(ev *fyne.DragEvent) {
	v.offset = v.offset.Add(ev.Dragged)
	v.Refresh()
}

func (v *PlanView) DragEnd() {}

func (v *PlanView) Tapped(*fyne.PointEvent) {}

func (v *PlanView) DoubleTapped(*fyne.PointEvent) {
	v.ResetView()
}

func (v *PlanView) Scrolled(ev *fyne.ScrollEvent) {
	delta := ev.Scrolled.DY
	if delta == 0 {
		delta = ev.Scrolled.DX
	}
	switch {
	case delta > 0:
		v.ZoomBy(1.1)
	case delta < 0:
		v.ZoomBy(0.9)
	}
}

// Focusable interface implementation
func (v *PlanView) FocusGained()   {}
func (v *PlanView) FocusLost()     {}
func (v *PlanView) TypedRune(rune) {}

func (v *PlanView) TypedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyPlus, fyne.KeyEqual:
		v.ZoomBy(1.2)
	case fyne.KeyMinus:
		v.ZoomBy(0.8)
	case fyne.KeySpace:
		v.ResetView()
	}
}

// Desktop mouse interface implementation
func (v *PlanView) MouseIn(*desktop.MouseEvent)    {}
func (v *PlanView) MouseOut()                      {}
func (v *PlanView) MouseMoved(*desktop.MouseEvent) {}

// CreateRenderer creates the visual representation
func (v *PlanView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.NRGBA{R: 20, G: 20, B: 26, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth
	return &planViewRenderer{view: v, bg: bg, img: img}
}

type planViewRenderer struct {
	view *PlanView
	bg   *canvas.Rectangle
	img  *canvas.Image
}

func (r *planViewRenderer) Layout(size fyne.Size) {
	r.view.size = size
	r.bg.Resize(size)
	pos, s := r.view.frameRect(size)
	r.img.Move(pos)
	r.img.Resize(s)
}

func (r *planViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(480, 270)
}

func (r *planViewRenderer) Refresh() {
	r.img.Image = r.view.frame
	r.Layout(r.view.size)
	canvas.Refresh(r.view)
}

func (r *planViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.img}
}

func (r *planViewRenderer) Destroy() {}
