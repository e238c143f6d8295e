package export

import (
	"image"
	"image/color"

	"github.com/gogpu/mandel/internal/compute"
)

// FloatImage is a read-only image.Image over float pixels in row-major
// order. It does not copy: the pixels must stay valid while it is used.
type FloatImage struct {
	Pix    []compute.Pixel
	Width  int
	Height int
}

// NewFloatImage wraps pix as a width x height image.
func NewFloatImage(pix []compute.Pixel, width, height int) *FloatImage {
	return &FloatImage{Pix: pix, Width: width, Height: height}
}

// ColorModel implements image.Image.
func (f *FloatImage) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (f *FloatImage) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *FloatImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.NRGBA{}
	}
	return toNRGBA(f.Pix[y*f.Width+x])
}

// NRGBA converts to 8-bit non-premultiplied RGBA. Channels are clamped
// to [0, 1] before scaling.
func (f *FloatImage) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(f.Bounds())
	for y := range f.Height {
		row := f.Pix[y*f.Width : (y+1)*f.Width]
		dst := img.Pix[y*img.Stride:]
		for x, p := range row {
			c := toNRGBA(p)
			dst[x*4+0] = c.R
			dst[x*4+1] = c.G
			dst[x*4+2] = c.B
			dst[x*4+3] = c.A
		}
	}
	return img
}

func toNRGBA(p compute.Pixel) color.NRGBA {
	return color.NRGBA{R: unit8(p.R), G: unit8(p.G), B: unit8(p.B), A: unit8(p.A)}
}

// unit8 maps [0, 1] to [0, 255] with rounding. NaN maps to 0.
func unit8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
