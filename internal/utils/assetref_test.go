// internal/utils/assetref_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAssetID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{
			name:   "versioned URL with folders",
			url:    "https://cdn.example.com/media/upload/v12345/classes/intro/cover.jpg",
			wantID: "classes/intro/cover",
			wantOK: true,
		},
		{
			name:   "no version segment",
			url:    "https://cdn.example.com/media/upload/videos/lesson-01.mp4",
			wantID: "videos/lesson-01",
			wantOK: true,
		},
		{
			name:   "flat file",
			url:    "https://cdn.example.com/media/upload/v1/banner.png",
			wantID: "banner",
			wantOK: true,
		},
		{
			name:   "filename with dots keeps all but the extension",
			url:    "https://cdn.example.com/media/upload/videos/part.1.final.mp4",
			wantID: "videos/part.1.final",
			wantOK: true,
		},
		{
			name:   "no extension",
			url:    "https://cdn.example.com/media/upload/v99/videos/raw",
			wantID: "videos/raw",
			wantOK: true,
		},
		{
			name:   "v-prefixed folder that is not a version survives",
			url:    "https://cdn.example.com/media/upload/v2beta/cover.jpg",
			wantID: "v2beta/cover",
			wantOK: true,
		},
		{
			name:   "bare v is not a version segment",
			url:    "https://cdn.example.com/media/upload/v/cover.jpg",
			wantID: "v/cover",
			wantOK: true,
		},
		{
			name:   "no upload marker",
			url:    "https://example.com/images/cover.jpg",
			wantID: "",
			wantOK: false,
		},
		{
			name:   "empty string",
			url:    "",
			wantID: "",
			wantOK: false,
		},
		{
			name:   "marker with nothing after it",
			url:    "https://cdn.example.com/media/upload/",
			wantID: "",
			wantOK: false,
		},
		{
			name:   "only a version segment after the marker",
			url:    "https://cdn.example.com/media/upload/v12345/",
			wantID: "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractAssetID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
