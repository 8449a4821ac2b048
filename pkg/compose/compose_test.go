package compose

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/matzehuels/tokenforge/pkg/errors"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mapLoader(layers map[string]*image.NRGBA) Loader {
	return LoaderFunc(func(path string) (*image.NRGBA, error) {
		img, ok := layers[path]
		if !ok {
			return nil, fmt.Errorf("no such layer %s", path)
		}
		return img, nil
	})
}

func TestBlendPixel(t *testing.T) {
	tests := []struct {
		name       string
		base, over color.NRGBA
		want       color.NRGBA
	}{
		{
			name: "transparent overlay keeps base",
			base: color.NRGBA{10, 20, 30, 40},
			over: color.NRGBA{255, 255, 255, 0},
			want: color.NRGBA{10, 20, 30, 40},
		},
		{
			name: "opaque overlay replaces base",
			base: color.NRGBA{10, 20, 30, 255},
			over: color.NRGBA{200, 100, 50, 255},
			want: color.NRGBA{200, 100, 50, 255},
		},
		{
			name: "half overlay on opaque base",
			base: color.NRGBA{0, 0, 255, 255},
			over: color.NRGBA{255, 0, 0, 128},
			want: color.NRGBA{128, 0, 127, 255},
		},
		{
			name: "half overlay on half base",
			base: color.NRGBA{0, 0, 255, 128},
			over: color.NRGBA{255, 0, 0, 128},
			want: color.NRGBA{170, 0, 85, 192},
		},
		{
			name: "overlay on fully transparent base",
			base: color.NRGBA{0, 0, 0, 0},
			over: color.NRGBA{90, 60, 30, 64},
			want: color.NRGBA{90, 60, 30, 64},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := []uint8{tt.base.R, tt.base.G, tt.base.B, tt.base.A}
			o := []uint8{tt.over.R, tt.over.G, tt.over.B, tt.over.A}
			BlendPixel(b, o)
			got := color.NRGBA{b[0], b[1], b[2], b[3]}
			if got != tt.want {
				t.Errorf("BlendPixel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeTransparentOverlayIsIdentity(t *testing.T) {
	base := solid(4, 3, color.NRGBA{12, 34, 56, 255})
	base.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 255})
	loader := mapLoader(map[string]*image.NRGBA{
		"base.png":  base,
		"empty.png": solid(4, 3, color.NRGBA{}),
	})

	out, err := Compose([]string{"base.png", "empty.png"}, loader)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for i := range base.Pix {
		if out.Pix[i] != base.Pix[i] {
			t.Fatalf("Pix[%d] = %d, want %d", i, out.Pix[i], base.Pix[i])
		}
	}
}

func TestComposeDoesNotMutateLayers(t *testing.T) {
	base := solid(2, 2, color.NRGBA{0, 0, 255, 255})
	loader := mapLoader(map[string]*image.NRGBA{
		"base.png": base,
		"top.png":  solid(2, 2, color.NRGBA{255, 0, 0, 255}),
	})

	out, err := Compose([]string{"base.png", "top.png"}, loader)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("NRGBAAt(0,0) = %v, want red", got)
	}
	if got := base.NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("base layer modified to %v", got)
	}
}

func TestComposeOrderMatters(t *testing.T) {
	red := solid(1, 1, color.NRGBA{255, 0, 0, 255})
	blue := solid(1, 1, color.NRGBA{0, 0, 255, 255})
	loader := mapLoader(map[string]*image.NRGBA{"red": red, "blue": blue})

	a, err := Compose([]string{"red", "blue"}, loader)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compose([]string{"blue", "red"}, loader)
	if err != nil {
		t.Fatal(err)
	}
	if a.NRGBAAt(0, 0) != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("red then blue = %v, want blue", a.NRGBAAt(0, 0))
	}
	if b.NRGBAAt(0, 0) != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("blue then red = %v, want red", b.NRGBAAt(0, 0))
	}
}

func TestComposeErrors(t *testing.T) {
	loader := mapLoader(map[string]*image.NRGBA{
		"big.png":   solid(4, 4, color.NRGBA{A: 255}),
		"small.png": solid(2, 2, color.NRGBA{A: 255}),
	})

	tests := []struct {
		name  string
		paths []string
	}{
		{"empty", nil},
		{"missing base", []string{"nope.png"}},
		{"missing overlay", []string{"big.png", "nope.png"}},
		{"size mismatch", []string{"big.png", "small.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.paths, loader)
			if !errors.Is(err, errors.ErrCodeImage) {
				t.Errorf("Compose() error = %v, want IMAGE_ERROR", err)
			}
		})
	}
}

func TestCloneSubImage(t *testing.T) {
	img := solid(4, 4, color.NRGBA{A: 255})
	img.SetNRGBA(2, 2, color.NRGBA{R: 9, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)

	out := Clone(sub)
	if out.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("Bounds() = %v, want (0,0)-(2,2)", out.Bounds())
	}
	if got := out.NRGBAAt(0, 0); got.R != 9 {
		t.Errorf("NRGBAAt(0,0) = %v, want R=9", got)
	}
}
