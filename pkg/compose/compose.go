// Package compose alpha-blends an ordered stack of same-sized layers into a
// single token image.
//
// The bottom layer is copied into a fresh output buffer and every later
// layer is blended onto it with the "over" operator, in the order given.
// Layers are never reordered and never scaled: every layer must have exactly
// the dimensions of the bottom one.
package compose

import (
	"image"
	"math"

	"github.com/matzehuels/tokenforge/pkg/errors"
)

// Loader provides decoded layer images. Returned images are treated as
// read-only.
type Loader interface {
	Load(path string) (*image.NRGBA, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (*image.NRGBA, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (*image.NRGBA, error) { return f(path) }

// Compose loads paths in order and blends them bottom to top.
//
// It fails with IMAGE_ERROR if paths is empty, if any layer cannot be
// loaded, or if any layer's size differs from the bottom layer's size.
func Compose(paths []string, loader Loader) (*image.NRGBA, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.ErrCodeImage, "no layers to compose")
	}

	base, err := loader.Load(paths[0])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImage, err, "load base layer %s", paths[0])
	}
	out := Clone(base)
	size := out.Bounds().Size()

	for _, path := range paths[1:] {
		layer, err := loader.Load(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeImage, err, "load layer %s", path)
		}
		if got := layer.Bounds().Size(); got != size {
			return nil, errors.New(errors.ErrCodeImage,
				"layer %s is %dx%d, base layer %s is %dx%d",
				path, got.X, got.Y, paths[0], size.X, size.Y)
		}
		Over(out, layer)
	}
	return out, nil
}

// Clone returns a copy of img anchored at the origin.
func Clone(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rowLen := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rowLen], img.Pix[src:src+rowLen])
	}
	return out
}

// Over blends overlay onto base in place. Both images must have the same
// size; pixels are matched relative to each image's bounds.
func Over(base, overlay *image.NRGBA) {
	bb, ob := base.Bounds(), overlay.Bounds()
	w, h := min(bb.Dx(), ob.Dx()), min(bb.Dy(), ob.Dy())

	for y := 0; y < h; y++ {
		bi := base.PixOffset(bb.Min.X, bb.Min.Y+y)
		oi := overlay.PixOffset(ob.Min.X, ob.Min.Y+y)
		for x := 0; x < w; x, bi, oi = x+1, bi+4, oi+4 {
			o := overlay.Pix[oi : oi+4 : oi+4]
			if o[3] == 0 {
				continue
			}
			b := base.Pix[bi : bi+4 : bi+4]
			BlendPixel(b, o)
		}
	}
}

// BlendPixel composites the NRGBA pixel o over b, writing the result to b.
//
//	αout = αo + αb(1-αo)
//	C    = (Co·αo + Cb·αb(1-αo)) / αout, or 0 when αout is 0
//
// Channels are normalized to [0,1], then rounded and clamped back to 8 bits.
// An overlay alpha of 0 leaves b untouched.
func BlendPixel(b, o []uint8) {
	if o[3] == 0 {
		return
	}
	ao := float64(o[3]) / 255
	ab := float64(b[3]) / 255
	weight := ab * (1 - ao)
	aout := ao + weight

	for c := 0; c < 3; c++ {
		if aout == 0 {
			b[c] = 0
			continue
		}
		co := float64(o[c]) / 255
		cb := float64(b[c]) / 255
		b[c] = quantize((co*ao + cb*weight) / aout)
	}
	b[3] = quantize(aout)
}

func quantize(v float64) uint8 {
	return uint8(math.Min(math.Max(math.Round(v*255), 0), 255))
}
