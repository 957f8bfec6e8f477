package codec

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format is an image file format
type Format int

const (
	// JPEG represents the JPEG format
	JPEG Format = iota
	// PNG represents the PNG format
	PNG
	// BMP represents the BMP format
	BMP
	// TIFF represents the TIFF format
	TIFF
	// WebP represents the WebP format, which can only be decoded
	WebP
)

type formatInfo struct {
	name        string
	extension   string
	contentType string
	canEncode   bool
}

var formats = map[Format]formatInfo{
	JPEG: {"jpeg", ".jpg", "image/jpeg", true},
	PNG:  {"png", ".png", "image/png", true},
	BMP:  {"bmp", ".bmp", "image/bmp", true},
	TIFF: {"tiff", ".tiff", "image/tiff", true},
	WebP: {"webp", ".webp", "image/webp", false},
}

var extensions = map[string]Format{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".bmp":  BMP,
	".tif":  TIFF,
	".tiff": TIFF,
	".webp": WebP,
}

func (f Format) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}

	return "unknown"
}

// Extension returns the canonical file extension of the format, including the dot
func (f Format) Extension() string {
	return formats[f].extension
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if info, ok := formats[f]; ok {
		return info.contentType
	}

	return "application/octet-stream"
}

// CanEncode reports whether images can be written in the format
func (f Format) CanEncode() bool {
	return formats[f].canEncode
}

// FormatFromExtension returns the format for a file extension such as ".png"
func FormatFromExtension(extension string) (Format, bool) {
	f, ok := extensions[strings.ToLower(extension)]
	return f, ok
}

// FormatFromPath returns the format matching the extension of path.
// Paths without a known extension fall back to JPEG.
func FormatFromPath(path string) Format {
	if f, ok := FormatFromExtension(filepath.Ext(path)); ok {
		return f
	}

	return JPEG
}

// sniff detects the format from the leading bytes of an image file
func sniff(data []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return JPEG, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, true
	case bytes.HasPrefix(data, []byte("BM")):
		return BMP, true
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TIFF, true
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WebP, true
	}

	return 0, false
}
