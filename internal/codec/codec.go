// Package codec decodes image files into pixel buffers and encodes them back.
package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/DMarby/photo-editor/internal/pixel"
	"github.com/gen2brain/jpegn"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used when none is given
const DefaultQuality = 75

// DefaultMaxPixels is the largest width*height decoded when no limit is given
const DefaultMaxPixels = 64 << 20

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrImageTooLarge     = errors.New("image dimensions too large")
)

// DecodeError is returned when an image could not be read or decoded
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("error decoding image %s: %s", e.Path, e.Err)
	}

	return fmt.Sprintf("error decoding image: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError is returned when an image could not be encoded or written
type EncodeError struct {
	Path   string
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("error encoding %s image %s: %s", e.Format, e.Path, e.Err)
	}

	return fmt.Sprintf("error encoding %s image: %s", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Options are the encoding parameters
type Options struct {
	// Quality is the JPEG quality, 1-100
	Quality int
}

func (o *Options) quality() int {
	if o == nil || o.Quality <= 0 {
		return DefaultQuality
	}

	if o.Quality > 100 {
		return 100
	}

	return o.Quality
}

// DecodeOptions are the decoding parameters
type DecodeOptions struct {
	// MaxPixels rejects images whose width*height exceeds it, before the pixels are allocated.
	// 0 means DefaultMaxPixels, a negative value means no limit.
	MaxPixels int64
}

func (o *DecodeOptions) maxPixels() int64 {
	if o == nil || o.MaxPixels == 0 {
		return DefaultMaxPixels
	}

	return o.MaxPixels
}

// Decode reads an image and returns it as a buffer along with its format
func Decode(r io.Reader) (*pixel.Buffer, Format, error) {
	return DecodeWithOptions(r, nil)
}

// DecodeWithOptions is Decode with a configurable size limit
func DecodeWithOptions(r io.Reader, opts *DecodeOptions) (*pixel.Buffer, Format, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, &DecodeError{Err: err}
	}

	format, ok := sniff(data)
	if !ok {
		return nil, 0, &DecodeError{Err: ErrUnsupportedFormat}
	}

	// The header is enough to know the allocation size
	config, err := decodeConfig(bytes.NewReader(data), format)
	if err != nil {
		return nil, format, &DecodeError{Err: err}
	}

	if limit := opts.maxPixels(); limit > 0 && int64(config.Width)*int64(config.Height) > limit {
		return nil, format, &DecodeError{Err: fmt.Errorf("%w: %dx%d", ErrImageTooLarge, config.Width, config.Height)}
	}

	img, err := decodeImage(bytes.NewReader(data), format)
	if err != nil {
		return nil, format, &DecodeError{Err: err}
	}

	buffer, err := pixel.FromImage(img)
	if err != nil {
		return nil, format, &DecodeError{Err: err}
	}

	return buffer, format, nil
}

func decodeConfig(r io.Reader, format Format) (image.Config, error) {
	switch format {
	case JPEG:
		return jpegn.DecodeConfig(r)
	case PNG:
		return png.DecodeConfig(r)
	case BMP:
		return bmp.DecodeConfig(r)
	case TIFF:
		return tiff.DecodeConfig(r)
	case WebP:
		return webp.DecodeConfig(r)
	}

	return image.Config{}, ErrUnsupportedFormat
}

func decodeImage(r io.Reader, format Format) (image.Image, error) {
	switch format {
	case JPEG:
		return jpegn.Decode(r, &jpegn.Options{
			ToRGBA:         true,
			UpsampleMethod: jpegn.CatmullRom,
			AutoRotate:     true,
		})
	case PNG:
		return png.Decode(r)
	case BMP:
		return bmp.Decode(r)
	case TIFF:
		return tiff.Decode(r)
	case WebP:
		return webp.Decode(r)
	}

	return nil, ErrUnsupportedFormat
}

// DecodeFile reads and decodes the image file at path
func DecodeFile(path string) (*pixel.Buffer, Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	buffer, format, err := Decode(bufio.NewReader(file))
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.Path = path
		}

		return nil, format, err
	}

	return buffer, format, nil
}

// Encode writes the buffer to w in the given format
func Encode(w io.Writer, b *pixel.Buffer, format Format, opts *Options) error {
	if b == nil {
		return &EncodeError{Format: format, Err: pixel.ErrNilImage}
	}

	if !format.CanEncode() {
		return &EncodeError{Format: format, Err: ErrUnsupportedFormat}
	}

	img := b.Image()

	var err error
	switch format {
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: opts.quality()})
	case PNG:
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}

	if err != nil {
		return &EncodeError{Format: format, Err: err}
	}

	return nil
}

// EncodeBytes encodes the buffer and returns the encoded data
func EncodeBytes(b *pixel.Buffer, format Format, opts *Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b, format, opts); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EncodeFile writes the buffer to the file at path in the given format
func EncodeFile(path string, b *pixel.Buffer, format Format, opts *Options) error {
	data, err := EncodeBytes(b, format, opts)
	if err != nil {
		var encodeErr *EncodeError
		if errors.As(err, &encodeErr) {
			encodeErr.Path = path
		}

		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return &EncodeError{Path: path, Format: format, Err: err}
	}

	return nil
}
