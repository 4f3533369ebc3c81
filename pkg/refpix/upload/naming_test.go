package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

func TestSanitizeRef(t *testing.T) {
	tests := []struct {
		ref      string
		row      int
		expected string
	}{
		{"A1", 4, "A1"},
		{"Sku-10.b_c", 4, "Sku-10.b_c"},
		{"  A2  ", 5, "A2"},
		{"A/1 x", 6, "A_1_x"},
		{"café", 7, "caf_"},
		{"../../etc", 8, ".._.._etc"},
		{"..", 9, "row9"},
		{"///", 10, "row10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeRef(tt.ref, tt.row), "ref %q", tt.ref)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		entry      string
		format     models.ImageFormat
		ext        string
		normalized bool
	}{
		{"xl/media/image1.jpeg", models.FormatJPEG, "jpeg", false},
		{"xl/media/image1.JPG", models.FormatJPEG, "jpg", false},
		{"xl/media/image2.png", models.FormatPNG, "png", false},
		{"xl/media/image3.gif", models.FormatGIF, "gif", false},
		{"xl/media/image4.png", models.FormatJPEG, "jpg", true},
		{"xl/media/image5.emf", models.FormatPNG, "png", true},
		{"xl/media/image6", models.FormatGIF, "gif", true},
	}
	for _, tt := range tests {
		ext, normalized := Extension(tt.entry, tt.format)
		assert.Equal(t, tt.ext, ext, tt.entry)
		assert.Equal(t, tt.normalized, normalized, tt.entry)
	}
}

func TestDestinationKey(t *testing.T) {
	assert.Equal(t, "images/products/A1.jpg", DestinationKey("images/products", "A1", 4, "jpg"))
	assert.Equal(t, "images/products/A1.jpg", DestinationKey("images/products/", "A1", 4, "jpg"))
	assert.Equal(t, "/var/www/images/A_1.png", DestinationKey("/var/www/images", "A 1", 4, "png"))
	assert.Equal(t, "A1.gif", DestinationKey("", "A1", 4, "gif"))
	assert.Equal(t, "/A1.gif", DestinationKey("/", "A1", 4, "gif"))
	assert.Equal(t, "images/row12.png", DestinationKey("images", "???", 12, "png"))

	// Same inputs, same key.
	assert.Equal(t, DestinationKey("images", "Aa", 4, "png"), DestinationKey("images", "Aa", 4, "png"))
	assert.NotEqual(t, DestinationKey("images", "Aa", 4, "png"), DestinationKey("images", "AA", 4, "png"))
}
