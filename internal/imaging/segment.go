package imaging

import (
	"context"
	"image"
	"image/color"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
)

// Segmenter separates the garment from its background. The returned image
// has fully transparent background pixels.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

const (
	defaultWorkingEdge   = 1024
	defaultKeyTolerance  = 38
	minForegroundPercent = 0.5
	alphaVisible         = 16
)

// BackgroundKeyer removes a roughly uniform backdrop by flood-filling from
// the image border across pixels close to the estimated background color.
type BackgroundKeyer struct {
	// WorkingEdge bounds the longest edge the keyer operates on.
	WorkingEdge int
	// Tolerance is the max per-channel-summed distance to the backdrop.
	Tolerance int
}

func NewBackgroundKeyer() *BackgroundKeyer {
	return &BackgroundKeyer{WorkingEdge: defaultWorkingEdge, Tolerance: defaultKeyTolerance}
}

func (k *BackgroundKeyer) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	edge := k.WorkingEdge
	if edge <= 0 {
		edge = defaultWorkingEdge
	}
	tol := k.Tolerance
	if tol <= 0 {
		tol = defaultKeyTolerance
	}

	work := blob.Thumbnail(img, edge)
	b := work.Bounds()
	w, h := b.Dx(), b.Dy()

	bg := estimateBackground(work)
	visited := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if visited[i] {
			return
		}
		c := work.NRGBAAt(x, y)
		if c.A >= alphaVisible && colorDistance(c, bg) > tol {
			return
		}
		visited[i] = true
		queue = append(queue, i)
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for n := 0; len(queue) > 0; n++ {
		if n&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x, y := i%w, i/w
		work.SetNRGBA(x, y, color.NRGBA{})
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}

	return work, nil
}

// estimateBackground averages the opaque border pixels.
func estimateBackground(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	var r, g, bl, n int
	add := func(x, y int) {
		c := img.NRGBAAt(x, y)
		if c.A < alphaVisible {
			return
		}
		r += int(c.R)
		g += int(c.G)
		bl += int(c.B)
		n++
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		add(x, b.Min.Y)
		add(x, b.Max.Y-1)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		add(b.Min.X, y)
		add(b.Max.X-1, y)
	}
	if n == 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 255}
}

func colorDistance(a, b color.NRGBA) int {
	return absInt(int(a.R)-int(b.R)) + absInt(int(a.G)-int(b.G)) + absInt(int(a.B)-int(b.B))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ForegroundBounds returns the bounding box of visible pixels and the share
// of the image they cover, in percent.
func ForegroundBounds(img *image.NRGBA) (image.Rectangle, float64) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	visible := 0

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A < alphaVisible {
				continue
			}
			visible++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if visible == 0 {
		return image.Rectangle{}, 0
	}
	total := b.Dx() * b.Dy()
	return image.Rect(minX, minY, maxX+1, maxY+1), float64(visible) * 100 / float64(total)
}

// CropToForeground trims transparent margins. It fails with ErrImageUnclear
// when too little of the image survived segmentation.
func CropToForeground(img *image.NRGBA) (*image.NRGBA, error) {
	rect, percent := ForegroundBounds(img)
	if rect.Empty() || percent < minForegroundPercent {
		return nil, ErrImageUnclear
	}

	return cropRect(img, rect), nil
}

// cropRect copies rect out of img into a new image anchored at the origin.
func cropRect(img *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		srcOff := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		dstOff := out.PixOffset(0, y)
		copy(out.Pix[dstOff:dstOff+rect.Dx()*4], img.Pix[srcOff:srcOff+rect.Dx()*4])
	}
	return out
}
