package soft

import (
	"image"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
)

// Texture is a software RGBA8 texture sampled with bilinear filtering and
// repeat addressing.
type Texture struct {
	dev      *Device
	id       uint64
	img      *image.RGBA
	w, h     int
	released atomic.Bool
}

var _ gpu.Texture = (*Texture)(nil)

func newTexture(d *Device, src *image.RGBA) *Texture {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+b.Dx()*4], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return &Texture{dev: d, id: d.nextID.Add(1), img: img, w: b.Dx(), h: b.Dy()}
}

// Width implements gpu.Texture.
func (t *Texture) Width() int { return t.w }

// Height implements gpu.Texture.
func (t *Texture) Height() int { return t.h }

// Release implements gpu.Texture.
func (t *Texture) Release() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	t.dev.submit(Op{Kind: OpRelease, Buffer: t.id}, func() {
		t.img = nil
	})
}

// Sample returns the filtered texel at normalized coordinates (u, v) with
// channels in [0, 1]. Coordinates wrap.
func (t *Texture) Sample(u, v float32) [4]float32 {
	x := u*float32(t.w) - 0.5
	y := v*float32(t.h) - 0.5
	x0 := math32.Floor(x)
	y0 := math32.Floor(y)
	fx := x - x0
	fy := y - y0

	ix := int(x0)
	iy := int(y0)

	c00 := t.texel(ix, iy)
	c10 := t.texel(ix+1, iy)
	c01 := t.texel(ix, iy+1)
	c11 := t.texel(ix+1, iy+1)

	var out [4]float32
	for i := range out {
		top := c00[i]*(1-fx) + c10[i]*fx
		bottom := c01[i]*(1-fx) + c11[i]*fx
		out[i] = top*(1-fy) + bottom*fy
	}
	return out
}

func (t *Texture) texel(x, y int) [4]float32 {
	x = wrap(x, t.w)
	y = wrap(y, t.h)
	o := y*t.img.Stride + x*4
	p := t.img.Pix[o : o+4 : o+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
