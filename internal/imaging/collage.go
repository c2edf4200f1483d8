package imaging

import (
	"image"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	CollageCanvasSize = 500
	MaxCollageLayers  = 12
	maxCollageScale   = 2.0
)

// Placement positions one garment on the collage canvas. X and Y locate the
// garment's center as a fraction of the canvas edge. Scale is the share of
// the canvas edge the garment's longer side spans. Rotation is in degrees,
// clockwise. Higher Z draws on top; equal Z keeps input order.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Z        int     `json:"z"`
}

func (p Placement) valid() bool {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	return finite(p.X) && finite(p.Y) && finite(p.Scale) && finite(p.Rotation) &&
		p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1 &&
		p.Scale > 0 && p.Scale <= maxCollageScale
}

type Layer struct {
	Image     image.Image
	Placement Placement
}

// DefaultLayout arranges up to four garments on a grid: two stacked, three
// as two on top and one centered below, four as a 2x2 grid.
func DefaultLayout(n int) []Placement {
	var centers [][2]float64
	switch {
	case n <= 0:
		return nil
	case n == 2:
		centers = [][2]float64{{0.5, 0.25}, {0.5, 0.69}}
	case n == 3:
		centers = [][2]float64{{0.25, 0.25}, {0.75, 0.25}, {0.5, 0.75}}
	default:
		centers = [][2]float64{{0.25, 0.25}, {0.75, 0.25}, {0.25, 0.75}, {0.75, 0.75}}
	}

	if n > len(centers) {
		n = len(centers)
	}
	out := make([]Placement, n)
	for i := range out {
		out[i] = Placement{X: centers[i][0], Y: centers[i][1], Scale: 0.5, Z: i}
	}
	return out
}

// Compose draws the layers onto a transparent size x size canvas in Z order
// and crops the result to its visible content. It is a pure function of its
// inputs.
func Compose(layers []Layer, size int) (*image.NRGBA, error) {
	if len(layers) == 0 || len(layers) > MaxCollageLayers {
		return nil, ErrCollageInvalid
	}
	if size <= 0 {
		size = CollageCanvasSize
	}
	for _, l := range layers {
		if l.Image == nil || l.Image.Bounds().Empty() || !l.Placement.valid() {
			return nil, ErrCollageInvalid
		}
	}

	ordered := make([]Layer, len(layers))
	copy(ordered, layers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Placement.Z < ordered[j].Placement.Z
	})

	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	for _, l := range ordered {
		xdraw.BiLinear.Transform(canvas, layerTransform(l, size), l.Image, l.Image.Bounds(), xdraw.Over, nil)
	}

	rect, _ := ForegroundBounds(canvas)
	if rect.Empty() {
		return nil, ErrCollageInvalid
	}
	return cropRect(canvas, rect), nil
}

// layerTransform maps source pixels to canvas pixels: scale, then rotate
// about the image center, then translate the center to the placement.
func layerTransform(l Layer, size int) f64.Aff3 {
	b := l.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	s := l.Placement.Scale * float64(size) / math.Max(w, h)

	theta := l.Placement.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	cx, cy := l.Placement.X*float64(size), l.Placement.Y*float64(size)

	// Source coordinates are relative to b.Min.
	ox, oy := float64(b.Min.X)+w/2, float64(b.Min.Y)+h/2
	return f64.Aff3{
		s * cos, -s * sin, cx - s*cos*ox + s*sin*oy,
		s * sin, s * cos, cy - s*sin*ox - s*cos*oy,
	}
}
