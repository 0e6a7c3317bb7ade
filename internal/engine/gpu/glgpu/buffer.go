package glgpu

import (
	"image"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
)

// Buffer is a shader storage buffer. Append buffers carry their write
// cursor in a separate one-word storage buffer.
type Buffer struct {
	dev     *Device
	id      uint32
	counter uint32
	typ     gpu.BufferType
	count   int
	stride  int

	released bool
}

var _ gpu.Buffer = (*Buffer)(nil)

func newBuffer(d *Device, typ gpu.BufferType, count, stride int) *Buffer {
	b := &Buffer{dev: d, typ: typ, count: count, stride: stride}

	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, count*stride, nil, gl.DYNAMIC_COPY)

	if typ == gpu.BufferAppend {
		var zero uint32
		gl.GenBuffers(1, &b.counter)
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.counter)
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, 4, gl.Ptr(&zero), gl.DYNAMIC_COPY)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return b
}

// Type implements gpu.Buffer.
func (b *Buffer) Type() gpu.BufferType { return b.typ }

// Count implements gpu.Buffer.
func (b *Buffer) Count() int { return b.count }

// Stride implements gpu.Buffer.
func (b *Buffer) Stride() int { return b.stride }

// Release implements gpu.Buffer. GL defers the free until pending commands
// that use the buffer have finished.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	gl.DeleteBuffers(1, &b.id)
	if b.counter != 0 {
		gl.DeleteBuffers(1, &b.counter)
	}
}

func (b *Buffer) size() int {
	return b.count * b.stride
}

// Texture is an RGBA8 texture with linear filtering and repeat wrapping.
type Texture struct {
	id       uint32
	w, h     int
	released bool
}

var _ gpu.Texture = (*Texture)(nil)

func newTexture(_ *Device, img *image.RGBA) *Texture {
	b := img.Bounds()
	t := &Texture{w: b.Dx(), h: b.Dy()}

	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(t.w), int32(t.h), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):]))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t
}

// Width implements gpu.Texture.
func (t *Texture) Width() int { return t.w }

// Height implements gpu.Texture.
func (t *Texture) Height() int { return t.h }

// Release implements gpu.Texture.
func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	gl.DeleteTextures(1, &t.id)
}
