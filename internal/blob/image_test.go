package blob

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestThumbnailFitsProfileEdge(t *testing.T) {
	thumb := Thumbnail(solid(900, 600, color.RGBA{R: 200, G: 10, B: 10, A: 255}), 300)
	if thumb.Bounds().Dx() != 300 || thumb.Bounds().Dy() != 200 {
		t.Fatalf("thumbnail dimensions = %dx%d, want 300x200", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}
}

func TestThumbnailKeepsPortraitAspect(t *testing.T) {
	thumb := Thumbnail(solid(100, 1000, color.White), 300)
	if thumb.Bounds().Dx() != 30 || thumb.Bounds().Dy() != 300 {
		t.Fatalf("thumbnail dimensions = %dx%d, want 30x300", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}
}

func TestThumbnailDoesNotUpscaleSmallImages(t *testing.T) {
	thumb := Thumbnail(solid(48, 32, color.RGBA{R: 20, G: 140, B: 80, A: 255}), 300)
	if thumb.Bounds().Dx() != 48 || thumb.Bounds().Dy() != 32 {
		t.Fatalf("thumbnail dimensions = %dx%d, want 48x32", thumb.Bounds().Dx(), thumb.Bounds().Dy())
	}
	if got := thumb.NRGBAAt(10, 10); got.G != 140 {
		t.Fatalf("thumbnail pixel = %+v, want copied source pixel", got)
	}
}

func TestEncodePNGKeepsTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	src.SetNRGBA(3, 3, color.NRGBA{R: 255, A: 255})

	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("background alpha = %d, want 0", a)
	}
	if r, _, _, a := decoded.At(3, 3).RGBA(); r != 0xffff || a != 0xffff {
		t.Fatalf("foreground pixel = (%d, %d), want opaque red", r, a)
	}
}

func TestDecodeImageAcceptsJPEG(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, solid(40, 20, color.White), nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	img, err := DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Fatalf("decoded dimensions = %dx%d, want 40x20", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImage([]byte("definitely not a png")); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("DecodeImage() error = %v, want ErrInvalidImage", err)
	}
}

func TestDecodeImageRejectsOversizedCanvas(t *testing.T) {
	ihdr := binary.BigEndian.AppendUint32(nil, 8192)
	ihdr = binary.BigEndian.AppendUint32(ihdr, 8192)
	ihdr = append(ihdr, 8, 6, 0, 0, 0)

	data := []byte("\x89PNG\r\n\x1a\n")
	data = binary.BigEndian.AppendUint32(data, uint32(len(ihdr)))
	data = append(data, "IHDR"...)
	data = append(data, ihdr...)
	data = binary.BigEndian.AppendUint32(data, crc32.ChecksumIEEE(append([]byte("IHDR"), ihdr...)))

	_, err := DecodeImage(data)
	if !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("DecodeImage() error = %v, want ErrTooManyPixels", err)
	}
}
