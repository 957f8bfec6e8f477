package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Errors
var (
	ErrInvalidSize = errors.New("invalid buffer size")
	ErrOutOfBounds = errors.New("pixel out of bounds")
	ErrNilImage    = errors.New("nil image")
)

const (
	bytesPerPixel = 4
	opaque        = 0xff
)

// RGB is a colour triple with 8 bits per channel
type RGB struct {
	R, G, B uint8
}

// Buffer is an in-memory raster of non-premultiplied RGBA pixels, stored row-major
type Buffer struct {
	width  int
	height int
	pix    []uint8
}

// New returns an opaque black buffer of the given size
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	pix := make([]uint8, width*height*bytesPerPixel)
	for i := 3; i < len(pix); i += bytesPerPixel {
		pix[i] = opaque
	}

	return &Buffer{
		width:  width,
		height: height,
		pix:    pix,
	}, nil
}

// FromImage copies an image into a new buffer
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	bounds := img.Bounds()
	b, err := New(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	dst := &image.NRGBA{
		Pix:    b.pix,
		Stride: b.width * bytesPerPixel,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
	xdraw.Draw(dst, dst.Rect, img, bounds.Min, xdraw.Src)

	return b, nil
}

// Width returns the width of the buffer
func (b *Buffer) Width() int {
	return b.width
}

// Height returns the height of the buffer
func (b *Buffer) Height() int {
	return b.height
}

// Bounds returns the buffer dimensions as a rectangle anchored at the origin
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Buffer) offset(x, y int) int {
	return (y*b.width + x) * bytesPerPixel
}

func (b *Buffer) boundsError(x, y int) error {
	return fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, b.width, b.height)
}

// Get returns the colour at x, y
func (b *Buffer) Get(x, y int) (RGB, error) {
	if !b.inBounds(x, y) {
		return RGB{}, b.boundsError(x, y)
	}

	return b.At(x, y), nil
}

// Set sets the colour at x, y, keeping the pixel's alpha
func (b *Buffer) Set(x, y int, c RGB) error {
	if !b.inBounds(x, y) {
		return b.boundsError(x, y)
	}

	b.Put(x, y, c)
	return nil
}

// Alpha returns the alpha value at x, y
func (b *Buffer) Alpha(x, y int) (uint8, error) {
	if !b.inBounds(x, y) {
		return 0, b.boundsError(x, y)
	}

	return b.pix[b.offset(x, y)+3], nil
}

// At returns the colour at x, y, or the zero value outside the buffer
func (b *Buffer) At(x, y int) RGB {
	if !b.inBounds(x, y) {
		return RGB{}
	}

	i := b.offset(x, y)
	s := b.pix[i : i+3 : i+3]
	return RGB{s[0], s[1], s[2]}
}

// Put sets the colour at x, y, and does nothing outside the buffer
func (b *Buffer) Put(x, y int, c RGB) {
	if !b.inBounds(x, y) {
		return
	}

	i := b.offset(x, y)
	s := b.pix[i : i+3 : i+3]
	s[0], s[1], s[2] = c.R, c.G, c.B
}

// Copy returns a deep copy of the buffer
func (b *Buffer) Copy() *Buffer {
	pix := make([]uint8, len(b.pix))
	copy(pix, b.pix)

	return &Buffer{
		width:  b.width,
		height: b.height,
		pix:    pix,
	}
}

// SameSize reports whether both buffers have identical dimensions
func (b *Buffer) SameSize(other *Buffer) bool {
	return other != nil && b.width == other.width && b.height == other.height
}

// Equal reports whether both buffers have identical dimensions and pixel data
func (b *Buffer) Equal(other *Buffer) bool {
	return b.SameSize(other) && bytes.Equal(b.pix, other.pix)
}

// Image returns a copy of the buffer as an *image.NRGBA
func (b *Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(b.Bounds())
	copy(img.Pix, b.pix)
	return img
}
