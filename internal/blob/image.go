package blob

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// MaxDecodedPixels caps width*height of any image decoded from bytes.
// Compressed formats can declare a canvas far larger than the upload.
const MaxDecodedPixels = 40_000_000

var (
	ErrInvalidImage  = errors.New("invalid image data")
	ErrTooManyPixels = errors.New("image dimensions too large")
)

// Thumbnail returns img scaled down to fit within maxEdge, or an NRGBA copy
// of img when it already fits.
func Thumbnail(img image.Image, maxEdge int) *image.NRGBA {
	bounds := img.Bounds()
	width, height := scaleDimensions(bounds.Dx(), bounds.Dy(), maxEdge)

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// DecodeImage accepts PNG and JPEG data. The header is checked against
// MaxDecodedPixels before any pixel buffer is allocated.
func DecodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxDecodedPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return img, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func scaleDimensions(width, height, maxEdge int) (int, int) {
	if maxEdge <= 0 || (width <= maxEdge && height <= maxEdge) {
		return width, height
	}

	if width >= height {
		ratio := float64(maxEdge) / float64(width)
		scaledHeight := int(float64(height)*ratio + 0.5)
		if scaledHeight < 1 {
			scaledHeight = 1
		}
		return maxEdge, scaledHeight
	}

	ratio := float64(maxEdge) / float64(height)
	scaledWidth := int(float64(width)*ratio + 0.5)
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	return scaledWidth, maxEdge
}
