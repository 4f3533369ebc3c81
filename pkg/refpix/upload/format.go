// Package upload validates extracted pictures and transfers them to a store
// on a bounded pool of workers.
package upload

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	gifMagic  = []byte("GIF")
)

// DetectFormat classifies data by its leading bytes.
func DetectFormat(data []byte) models.ImageFormat {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return models.FormatJPEG
	case bytes.HasPrefix(data, pngMagic):
		return models.FormatPNG
	case bytes.HasPrefix(data, gifMagic):
		return models.FormatGIF
	default:
		return models.FormatUnknown
	}
}

// unsupportedFormatError describes bytes that match no known signature.
func unsupportedFormatError(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("image is empty")
	}
	n := min(len(data), 4)
	return fmt.Errorf("unrecognised image signature % x", data[:n])
}

// Checksum returns the hex xxhash64 digest of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
