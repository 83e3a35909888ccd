package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"rhythmpath/geom"
	"rhythmpath/playback"
	"rhythmpath/trajectory"
)

// cameraPadding is the margin kept around the path when fitting the frame.
const cameraPadding = 60

// RenderOptions controls frame size, colours and the look of the scene.
type RenderOptions struct {
	Width, Height int
	Supersample   int // render at this multiple and downscale; 1 disables

	Background string // hex colours
	WallColor  string
	BallColor  string

	CharacterSize float64
	WallThickness float64
	GlowWindow    float64 // seconds a wall glows after its hit

	Skin image.Image // optional ball image, drawn instead of BallColor
}

// DefaultRenderOptions returns a 1280x720 dark scene sized for cfg.
func DefaultRenderOptions(characterSize, wallThickness float64) RenderOptions {
	return RenderOptions{
		Width:         1280,
		Height:        720,
		Supersample:   2,
		Background:    "#14141a",
		WallColor:     "#3a3a48",
		BallColor:     "#f5f5f5",
		CharacterSize: characterSize,
		WallThickness: wallThickness,
		GlowWindow:    0.25,
	}
}

// camera maps world coordinates to pixels of the supersampled canvas.
type camera struct {
	min    geom.Vec2
	scale  float64
	offset geom.Vec2
}

func fitCamera(bounds geom.Rect, w, h int) camera {
	bw, bh := math.Max(bounds.Width(), 1), math.Max(bounds.Height(), 1)
	scale := math.Min(float64(w)/bw, float64(h)/bh)
	return camera{
		min:   bounds.Min,
		scale: scale,
		offset: geom.V(
			(float64(w)-bw*scale)/2,
			(float64(h)-bh*scale)/2,
		),
	}
}

func (c camera) toScreen(p geom.Vec2) geom.Vec2 {
	return p.Sub(c.min).Scale(c.scale).Add(c.offset)
}

func (c camera) toWorld(x, y int) geom.Vec2 {
	return geom.V(float64(x)+0.5, float64(y)+0.5).Sub(c.offset).Scale(1 / c.scale).Add(c.min)
}

// FrameRenderer draws a planned trajectory at any point in time.
type FrameRenderer struct {
	plan   trajectory.PlanResult
	opts   RenderOptions
	cam    camera
	walls  []geom.Polygon
	halos  []geom.Polygon
	hits   []colorful.Color
	bg     colorful.Color
	wall   colorful.Color
	ball   colorful.Color
	skin   *image.NRGBA
	canvas image.Rectangle
}

// NewFrameRenderer prepares the camera and wall shapes for plan.
func NewFrameRenderer(plan trajectory.PlanResult, opts RenderOptions) (*FrameRenderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	if len(plan.Path) == 0 {
		return nil, fmt.Errorf("plan has no path")
	}

	r := &FrameRenderer{plan: plan, opts: opts}
	var err error
	if r.bg, err = colorful.Hex(opts.Background); err != nil {
		return nil, fmt.Errorf("background colour: %w", err)
	}
	if r.wall, err = colorful.Hex(opts.WallColor); err != nil {
		return nil, fmt.Errorf("wall colour: %w", err)
	}
	if r.ball, err = colorful.Hex(opts.BallColor); err != nil {
		return nil, fmt.Errorf("ball colour: %w", err)
	}

	w, h := opts.Width*opts.Supersample, opts.Height*opts.Supersample
	r.canvas = image.Rect(0, 0, w, h)
	r.cam = fitCamera(plan.Bounds(cameraPadding), w, h)
	if opts.Skin != nil {
		r.skin = fitSkin(opts.Skin, int(math.Ceil(opts.CharacterSize*r.cam.scale)))
	}

	for i, wl := range plan.Walls {
		poly, err := geom.Corridor(wl.Start, wl.End, opts.WallThickness)
		if err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
		halo, err := geom.Corridor(wl.Start, wl.End, opts.WallThickness*3)
		if err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
		hit, err := colorful.Hex(wl.HitColor)
		if err != nil {
			return nil, fmt.Errorf("wall %d colour: %w", i, err)
		}
		r.walls = append(r.walls, poly)
		r.halos = append(r.halos, halo)
		r.hits = append(r.hits, hit)
	}
	return r, nil
}

// Duration returns the playback length of the plan.
func (r *FrameRenderer) Duration() float64 {
	return r.plan.Duration()
}

// Render draws the scene at time t and returns a Width x Height image.
func (r *FrameRenderer) Render(t float64) *image.NRGBA {
	img := imaging.New(r.canvas.Dx(), r.canvas.Dy(), toNRGBA(r.wall))

	// Carve the corridors out of the solid wall colour
	pad := r.opts.CharacterSize / 2
	bg := toNRGBA(r.bg)
	for _, s := range r.plan.Segments {
		box := geom.Rect{
			Min: geom.V(math.Min(s.StartPos.X, s.EndPos.X), math.Min(s.StartPos.Y, s.EndPos.Y)),
			Max: geom.V(math.Max(s.StartPos.X, s.EndPos.X), math.Max(s.StartPos.Y, s.EndPos.Y)),
		}.Expand(pad)
		r.fillRect(img, box, bg)
	}

	for _, i := range playback.ActiveWalls(r.plan, t, r.opts.GlowWindow) {
		age := (t - r.plan.Walls[i].HitTime) / r.opts.GlowWindow
		glow := r.hits[i].BlendRgb(r.bg, age).Clamped()
		r.fillPolygon(img, r.halos[i], toNRGBA(glow))
	}

	for i, poly := range r.walls {
		c := r.wall
		if r.plan.Walls[i].HitTime <= t {
			c = r.hits[i]
		}
		r.fillPolygon(img, poly, toNRGBA(c))
	}

	pos := playback.PositionAt(r.plan, t).Pos
	r.drawBall(img, pos)

	if r.opts.Supersample > 1 {
		return imaging.Resize(img, r.opts.Width, r.opts.Height, imaging.Lanczos)
	}
	return img
}

// fillRect fills the screen area covered by the world-space box.
func (r *FrameRenderer) fillRect(img *image.NRGBA, box geom.Rect, c color.NRGBA) {
	area := r.screenRect(box)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func (r *FrameRenderer) fillPolygon(img *image.NRGBA, poly geom.Polygon, c color.NRGBA) {
	area := r.screenRect(poly.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if poly.Contains(r.cam.toWorld(x, y)) {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

// drawBall draws the ball as a disc, textured with the skin when one is set.
func (r *FrameRenderer) drawBall(img *image.NRGBA, center geom.Vec2) {
	radius := r.opts.CharacterSize / 2
	box := geom.Rect{Min: center, Max: center}.Expand(radius)
	area := r.screenRect(box)
	fill := toNRGBA(r.ball)
	corner := r.cam.toScreen(box.Min)

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if r.cam.toWorld(x, y).Sub(center).Len() > radius {
				continue
			}
			c := fill
			if r.skin != nil {
				sb := r.skin.Bounds()
				sx := min(max(x-int(math.Floor(corner.X)), 0), sb.Dx()-1)
				sy := min(max(y-int(math.Floor(corner.Y)), 0), sb.Dy()-1)
				c = blendOver(img.NRGBAAt(x, y), r.skin.NRGBAAt(sx, sy))
			}
			img.SetNRGBA(x, y, c)
		}
	}
}

// blendOver composites src over an opaque dst.
func blendOver(dst, src color.NRGBA) color.NRGBA {
	a := float64(src.A) / 255
	mix := func(d, s uint8) uint8 {
		return uint8(float64(d)*(1-a) + float64(s)*a + 0.5)
	}
	return color.NRGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}

// screenRect converts a world box to the pixel rectangle it covers, clipped
// to the canvas.
func (r *FrameRenderer) screenRect(box geom.Rect) image.Rectangle {
	a, b := r.cam.toScreen(box.Min), r.cam.toScreen(box.Max)
	return image.Rect(
		int(math.Floor(a.X)), int(math.Floor(a.Y)),
		int(math.Ceil(b.X)), int(math.Ceil(b.Y)),
	).Intersect(r.canvas)
}

// SaveFrame renders time t and writes it to path; the format follows the
// extension.
func (r *FrameRenderer) SaveFrame(t float64, path string) error {
	if err := imaging.Save(r.Render(t), path); err != nil {
		return fmt.Errorf("failed to save frame: %w", err)
	}
	return nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// sharedRenderer holds the renderer of the current plan for readers on other
// goroutines. A nil renderer means no plan yet.
type sharedRenderer struct {
	mu sync.RWMutex
	r  *FrameRenderer
}

func (s *sharedRenderer) Set(r *FrameRenderer) {
	s.mu.Lock()
	s.r = r
	s.mu.Unlock()
}

func (s *sharedRenderer) Get() *FrameRenderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}

// Render draws time t with the current renderer; ok is false without a plan.
func (s *sharedRenderer) Render(t float64) (img *image.NRGBA, ok bool) {
	r := s.Get()
	if r == nil {
		return nil, false
	}
	return r.Render(t), true
}
