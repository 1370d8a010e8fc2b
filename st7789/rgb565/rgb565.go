// Package rgb565 provides a 16-bit RGB565 image format for the ST7789 display controller.
//
// The ST7789 consumes pixels as big-endian 16-bit words (5 bits red, 6 bits
// green, 5 bits blue). This package provides the RGB565 color type and an
// image.Image implementation whose Pix layout matches the controller's wire
// format byte for byte, so a full frame can be streamed without conversion.
package rgb565

import (
	"image"
	"image/color"
)

// RGB565 represents a 16-bit color in 5-6-5 bit layout:
// bits 15-11 red, bits 10-5 green, bits 4-0 blue.
type RGB565 uint16

// RGBA converts the RGB565 color to standard RGBA.
// Channels are expanded by bit replication (e.g. 5-bit red r becomes
// r<<3 | r>>2) and then scaled to 16-bit.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c >> 11 & 0x1F)
	g6 := uint32(c >> 5 & 0x3F)
	b5 := uint32(c & 0x1F)
	r8 := r5<<3 | r5>>2
	g8 := g6<<2 | g6>>4
	b8 := b5<<3 | b5>>2
	return r8 * 0x101, g8 * 0x101, b8 * 0x101, 0xFFFF
}

// toRGB565 converts any color.Color to RGB565.
func toRGB565(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	// RGBA returns 16-bit channels; keep the top 5/6/5 bits.
	return RGB565(r>>11<<11 | g>>10<<5 | b>>11)
}

// RGB565Model converts colors to RGB565.
var RGB565Model = color.ModelFunc(toRGB565)

// From packs 8-bit channels into an RGB565 value.
func From(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// Image is a 16-bit RGB565 image stored big-endian, two bytes per pixel,
// matching the ST7789 RAMWR data stream.
type Image struct {
	Pix    []byte          // Pixel data (2 bytes per pixel, big-endian)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// New creates a new RGB565 image with the specified bounds.
func New(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &Image{Rect: r}
	}
	stride := w * 2
	return &Image{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return RGB565Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the RGB565 color of the pixel at (x, y).
func (p *Image) RGB565At(x, y int) RGB565 {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	i := p.PixOffset(x, y)
	return RGB565(uint16(p.Pix[i])<<8 | uint16(p.Pix[i+1]))
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.setRGB565(p.PixOffset(x, y), RGB565Model.Convert(c).(RGB565))
}

// SetRGB565 sets the RGB565 color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *Image) SetRGB565(x, y int, c RGB565) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.setRGB565(p.PixOffset(x, y), c)
}

func (p *Image) setRGB565(i int, c RGB565) {
	p.Pix[i] = byte(c >> 8)
	p.Pix[i+1] = byte(c)
}

// PixOffset returns the byte offset of the first byte of the pixel at (x, y).
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}
