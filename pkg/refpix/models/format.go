package models

import (
	"fmt"
	"strings"
)

// ImageFormat is the format detected from an image's leading bytes.
type ImageFormat int

const (
	// FormatUnknown indicates an unrecognised byte signature.
	FormatUnknown ImageFormat = iota
	// FormatJPEG indicates a JPEG image (FF D8 prefix).
	FormatJPEG
	// FormatPNG indicates a PNG image (89 50 4E 47 prefix).
	FormatPNG
	// FormatGIF indicates a GIF image ("GIF" prefix).
	FormatGIF
)

// String returns the string representation of the format.
func (f ImageFormat) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatGIF:
		return "GIF"
	default:
		return "UNKNOWN"
	}
}

// Extension returns the canonical file extension for the format, without the dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	default:
		return ""
	}
}

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f ImageFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ImageFormat) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "JPEG":
		*f = FormatJPEG
	case "PNG":
		*f = FormatPNG
	case "GIF":
		*f = FormatGIF
	case "UNKNOWN", "":
		*f = FormatUnknown
	default:
		return fmt.Errorf("unknown image format %q", text)
	}
	return nil
}
