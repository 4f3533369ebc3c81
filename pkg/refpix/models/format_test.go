package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFormat(t *testing.T) {
	tests := []struct {
		format      ImageFormat
		name        string
		ext         string
		contentType string
	}{
		{FormatJPEG, "JPEG", "jpg", "image/jpeg"},
		{FormatPNG, "PNG", "png", "image/png"},
		{FormatGIF, "GIF", "gif", "image/gif"},
		{FormatUnknown, "UNKNOWN", "", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.format.String())
		assert.Equal(t, tt.ext, tt.format.Extension())
		assert.Equal(t, tt.contentType, tt.format.ContentType())

		var parsed ImageFormat
		require.NoError(t, parsed.UnmarshalText([]byte(tt.name)))
		assert.Equal(t, tt.format, parsed)
	}

	var f ImageFormat
	assert.Error(t, f.UnmarshalText([]byte("TIFF")))
}

func TestUploadResultJSON(t *testing.T) {
	data, err := json.Marshal(UploadResult{Ref: "A1", Row: 4, Format: FormatPNG, Status: StatusSucceeded})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"format":"PNG"`)

	var decoded UploadResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, FormatPNG, decoded.Format)
}

func TestRunStatisticsComplete(t *testing.T) {
	s := NewRunStatistics()
	assert.NotNil(t, s.Errors)
	assert.True(t, s.Complete())

	s.ImagesFound = 3
	s.UploadsSuccessful = 2
	assert.False(t, s.Complete())
	s.UploadsFailed = 1
	assert.True(t, s.Complete())
}
