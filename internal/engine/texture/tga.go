// Package texture decodes images into RGBA pixel data ready for upload as
// device textures.
package texture

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// DecodeTGA decodes a TGA image.
// Supports uncompressed (type 2) and RLE compressed (type 10) true-color
// images at 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := int(data[2])
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d (only uncompressed/RLE true-color supported)", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d (only 24/32 supported)", bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		pix:         data[offset:],
		width:       width,
		height:      height,
		bytesPerPx:  bpp / 8,
		topToBottom: descriptor&0x20 != 0, // bit 5: origin at top
	}

	if imageType == TGATypeUncompressed {
		if len(d.pix) < width*height*d.bytesPerPx {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for i := 0; i < width*height; i++ {
			d.put(i, d.read(i*d.bytesPerPx))
		}
		return d.img, nil
	}

	d.decodeRLE()
	return d.img, nil
}

type tgaDecoder struct {
	img         *image.RGBA
	pix         []byte
	width       int
	height      int
	bytesPerPx  int
	topToBottom bool
}

// read returns the BGR(A) pixel at byte offset off.
func (d *tgaDecoder) read(off int) color.RGBA {
	c := color.RGBA{B: d.pix[off], G: d.pix[off+1], R: d.pix[off+2], A: 255}
	if d.bytesPerPx == 4 {
		c.A = d.pix[off+3]
	}
	return c
}

// put stores pixel number i in file order.
func (d *tgaDecoder) put(i int, c color.RGBA) {
	x := i % d.width
	y := i / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
}

// decodeRLE decodes run-length packets; truncated input leaves the
// remaining pixels transparent.
func (d *tgaDecoder) decodeRLE() {
	total := d.width * d.height
	px := 0
	off := 0

	for px < total && off < len(d.pix) {
		packet := d.pix[off]
		off++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if off+d.bytesPerPx > len(d.pix) {
				return
			}
			c := d.read(off)
			off += d.bytesPerPx
			for i := 0; i < count && px < total; i++ {
				d.put(px, c)
				px++
			}
			continue
		}

		for i := 0; i < count && px < total; i++ {
			if off+d.bytesPerPx > len(d.pix) {
				return
			}
			d.put(px, d.read(off))
			off += d.bytesPerPx
			px++
		}
	}
}
