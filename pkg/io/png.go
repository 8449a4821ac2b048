package io

import (
	"bufio"
	"image"
	"image/png"
	"io"
	"os"
	"sync"

	"golang.org/x/image/draw"

	"github.com/matzehuels/tokenforge/pkg/errors"
)

// MaxPNGLevel is the highest accepted compression level.
const MaxPNGLevel = 6

// PNGOptions controls how token images are encoded.
type PNGOptions struct {
	Compress bool // apply the configured compression level
	Level    int  // 0 (fastest) .. 6 (smallest); clamped
}

// CompressionLevel maps the 0..6 level scale onto the encoder's levels.
// Disabled compression keeps the encoder default.
func (o PNGOptions) CompressionLevel() png.CompressionLevel {
	if !o.Compress {
		return png.DefaultCompression
	}
	switch level := min(max(o.Level, 0), MaxPNGLevel); {
	case level <= 1:
		return png.BestSpeed
	case level <= 4:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// encoderPool shares zlib buffers between concurrent encoders.
type encoderPool struct{ p sync.Pool }

func (e *encoderPool) Get() *png.EncoderBuffer {
	b, _ := e.p.Get().(*png.EncoderBuffer)
	return b
}

func (e *encoderPool) Put(b *png.EncoderBuffer) { e.p.Put(b) }

var buffers = &encoderPool{}

// DecodePNG decodes a PNG from r and converts it to NRGBA with its bounds
// starting at the origin.
func DecodePNG(r io.Reader) (*image.NRGBA, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// ImportPNG decodes the PNG file at path. Failures carry the path and the
// IMAGE_ERROR code.
func ImportPNG(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImage, err, "open layer %s", path)
	}
	defer f.Close()

	img, err := DecodePNG(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImage, err, "decode layer %s", path)
	}
	return img, nil
}

// ToNRGBA returns img as non-premultiplied RGBA anchored at the origin.
// Images that already satisfy this are returned as-is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image, opts PNGOptions) error {
	enc := png.Encoder{
		CompressionLevel: opts.CompressionLevel(),
		BufferPool:       buffers,
	}
	return enc.Encode(w, img)
}

// ExportPNG writes img to path. Failures carry the IO_ERROR code.
func ExportPNG(path string, img image.Image, opts PNGOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	bw := bufio.NewWriter(f)
	if err := WritePNG(bw, img, opts); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "encode %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

// Size returns the pixel dimensions of the PNG at path without decoding the
// pixel data.
func Size(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, errors.Wrap(errors.ErrCodeImage, err, "open layer %s", path)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return image.Point{}, errors.Wrap(errors.ErrCodeImage, err, "decode layer %s", path)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

