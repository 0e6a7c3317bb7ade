package grass

import (
	"fmt"
	"image"
	"os"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/internal/engine/texture"
)

// MaxNoiseSize caps the side of a loaded noise field; larger images are
// resampled down.
const MaxNoiseSize = 1024

// NoiseField is a tileable 2D wind field uploaded as a texture.
type NoiseField struct {
	Name  string
	Image *image.RGBA
}

// LoadNoiseField reads a noise image from disk (PNG, JPEG, BMP, TIFF or TGA).
func LoadNoiseField(path string) (*NoiseField, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read noise field: %w", err)
	}
	return DecodeNoiseField(data, path)
}

// DecodeNoiseField decodes an encoded noise image. The format is picked by
// the extension of name.
func DecodeNoiseField(data []byte, name string) (*NoiseField, error) {
	img, err := texture.Decode(data, name)
	if err != nil {
		return nil, fmt.Errorf("load noise field: %w", err)
	}

	rgba := texture.ToRGBA(img)
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	if w > MaxNoiseSize || h > MaxNoiseSize {
		rgba = texture.Resample(rgba, min(w, MaxNoiseSize), min(h, MaxNoiseSize))
	}
	return &NoiseField{Name: name, Image: rgba}, nil
}

// DefaultNoiseField builds a tileable value-noise field. Red and green hold
// independent noise so the pair reads as a wind direction.
func DefaultNoiseField(size int, seed uint32) *NoiseField {
	if size <= 0 {
		size = 256
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	const cells = 8
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := float32(x) / float32(size)
			v := float32(y) / float32(size)
			r := fractalNoise(u, v, cells, seed)
			g := fractalNoise(u, v, cells, seed^0x9e3779b9)

			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(r*255 + 0.5)
			img.Pix[i+1] = uint8(g*255 + 0.5)
			img.Pix[i+2] = 0
			img.Pix[i+3] = 255
		}
	}
	return &NoiseField{Name: fmt.Sprintf("default-%d", seed), Image: img}
}

// fractalNoise sums three octaves of value noise over a lattice that wraps
// at u, v = 1. The result is in [0, 1].
func fractalNoise(u, v float32, cells int, seed uint32) float32 {
	var sum, norm float32
	amp := float32(1)
	for octave := 0; octave < 3; octave++ {
		n := cells << octave
		sum += amp * valueNoise(u*float32(n), v*float32(n), n, seed+uint32(octave))
		norm += amp
		amp *= 0.5
	}
	return sum / norm
}

func valueNoise(x, y float32, period int, seed uint32) float32 {
	x0 := math32.Floor(x)
	y0 := math32.Floor(y)
	fx := smoothstep(x - x0)
	fy := smoothstep(y - y0)

	ix := int(x0) % period
	iy := int(y0) % period
	ix1 := (ix + 1) % period
	iy1 := (iy + 1) % period

	a := lattice(ix, iy, seed)
	b := lattice(ix1, iy, seed)
	c := lattice(ix, iy1, seed)
	d := lattice(ix1, iy1, seed)

	top := a + (b-a)*fx
	bottom := c + (d-c)*fx
	return top + (bottom-top)*fy
}

func lattice(x, y int, seed uint32) float32 {
	return unitFloat(pcgHash(uint32(x) ^ pcgHash(uint32(y)^pcgHash(seed))))
}

func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}
