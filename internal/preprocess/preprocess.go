// Package preprocess turns uploaded images into normalized NCHW float tensors.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

const channels = 3

// Transform resizes to a square resolution and applies a per-channel affine normalization.
type Transform struct {
	Size int
	Mean [channels]float32
	Std  [channels]float32

	// MaxPixels bounds the declared width*height of a decoded image.
	MaxPixels int
}

func New(size int, mean, std []float32, maxPixels int) *Transform {
	t := &Transform{Size: size, MaxPixels: maxPixels}
	copy(t.Mean[:], mean)
	copy(t.Std[:], std)
	return t
}

// Decode reads an image in any registered format. The header is checked
// against MaxPixels before any pixel data is decoded.
func (t *Transform) Decode(r io.Reader) (image.Image, string, error) {
	var header bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", roperrors.Wrap(roperrors.KindPreprocess, err, "Error preprocessing image")
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", roperrors.Newf(roperrors.KindPreprocess, "Error preprocessing image: empty image %dx%d", cfg.Width, cfg.Height)
	}

	if t.MaxPixels > 0 && cfg.Width > t.MaxPixels/cfg.Height {
		return nil, "", roperrors.Newf(roperrors.KindPreprocess, "Error preprocessing image: %dx%d %s image exceeds limit of %d pixels",
			cfg.Width, cfg.Height, format, t.MaxPixels)
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, "", roperrors.Wrap(roperrors.KindPreprocess, err, "Error preprocessing image")
	}

	return img, format, nil
}

// Len is the number of values Apply produces.
func (t *Transform) Len() int {
	return channels * t.Size * t.Size
}

// Shape is the tensor shape Apply produces, with a batch of one.
func (t *Transform) Shape() []int64 {
	return []int64{1, channels, int64(t.Size), int64(t.Size)}
}

// Apply converts img into a 1x3xSizexSize tensor laid out channel first.
func (t *Transform) Apply(img image.Image) ([]float32, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, roperrors.Newf(roperrors.KindPreprocess, "Error preprocessing image: empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	resized := resize.Resize(uint(t.Size), uint(t.Size), toRGB(img), resize.Bilinear)
	rb := resized.Bounds()
	width, height := rb.Dx(), rb.Dy()
	if width != t.Size || height != t.Size {
		return nil, roperrors.Newf(roperrors.KindPreprocess, "Error preprocessing image: resized to %dx%d, want %dx%d", width, height, t.Size, t.Size)
	}

	plane := width * height
	data := make([]float32, channels*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			i := y*width + x
			data[i] = t.normalize(0, r)
			data[plane+i] = t.normalize(1, g)
			data[2*plane+i] = t.normalize(2, b)
		}
	}

	return data, nil
}

func (t *Transform) normalize(c int, v uint32) float32 {
	return (float32(v>>8)/255 - t.Mean[c]) / t.Std[c]
}

// String describes the transform for model info responses.
func (t *Transform) String() string {
	return fmt.Sprintf("Resize(%d,%d) + Normalize(%s)", t.Size, t.Size, joinFloats(t.Mean[:]))
}

// toRGB drops the alpha channel, keeping the stored color of translucent pixels.
func toRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	return rgb
}

func joinFloats(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}

	return strings.Join(parts, ",")
}
