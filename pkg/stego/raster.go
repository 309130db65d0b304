package stego

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"golang.org/x/image/bmp"
)

// raster is a decoded PNG or BMP cover. Its samples are the R, G and B bytes
// of every pixel in row-major order; alpha is never touched.
type raster struct {
	img    *image.NRGBA
	format Format
}

func decodeRaster(data []byte, format Format) (*raster, error) {
	var (
		img image.Image
		err error
	)
	switch format {
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatBMP:
		img, err = bmp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s is not a raster format", codec.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", codec.ErrUnsupportedFormat, format, err)
	}
	return &raster{img: copyImage(img), format: format}, nil
}

// copyImage converts img to NRGBA with its origin at (0, 0).
func copyImage(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+4*b.Dx()], src.Pix[i:i+4*b.Dx()])
		}
		return out
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func (r *raster) width() int  { return r.img.Rect.Dx() }
func (r *raster) height() int { return r.img.Rect.Dy() }

// samples returns a fresh slice of the RGB bytes.
func (r *raster) samples() []byte {
	out := make([]byte, 0, r.width()*r.height()*3)
	for y := 0; y < r.height(); y++ {
		for x := 0; x < r.width(); x++ {
			i := r.img.PixOffset(x, y)
			out = append(out, r.img.Pix[i:i+3]...)
		}
	}
	return out
}

// withSamples returns the cover re-encoded in its own format with its RGB
// bytes replaced by samples.
func (r *raster) withSamples(samples []byte) ([]byte, error) {
	if len(samples) != r.width()*r.height()*3 {
		return nil, fmt.Errorf("raster: %d samples for %dx%d pixels", len(samples), r.width(), r.height())
	}
	out := image.NewNRGBA(r.img.Rect)
	copy(out.Pix, r.img.Pix)
	k := 0
	for y := 0; y < r.height(); y++ {
		for x := 0; x < r.width(); x++ {
			i := out.PixOffset(x, y)
			copy(out.Pix[i:i+3], samples[k:k+3])
			k += 3
		}
	}

	var buf bytes.Buffer
	var err error
	if r.format == FormatBMP {
		err = bmp.Encode(&buf, out)
	} else {
		err = png.Encode(&buf, out)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", r.format, err)
	}
	return buf.Bytes(), nil
}
