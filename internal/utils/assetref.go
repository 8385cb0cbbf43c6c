// internal/utils/assetref.go
package utils

import (
	"strings"
)

// uploadMarker is the fixed path segment every hosted-media URL contains.
// Everything after it (minus an optional version segment and the file
// extension) is the asset's stable deletion identifier on the media host.
const uploadMarker = "/upload/"

// ExtractAssetID derives the media-host identifier from a hosted URL.
// It returns false when the URL does not look like a hosted asset at all;
// that is a signal to skip cleanup, not an error.
//
//	https://cdn.example.com/media/upload/v12345/classes/intro/cover.jpg
//	  -> "classes/intro/cover", true
//
// The identifier keeps any folder structure: only the version segment and the
// extension after the last dot are stripped.
func ExtractAssetID(url string) (string, bool) {
	idx := strings.Index(url, uploadMarker)
	if idx < 0 {
		return "", false
	}

	rest := url[idx+len(uploadMarker):]

	// Drop the optional v<digits> version segment directly after the marker.
	if seg, tail, found := strings.Cut(rest, "/"); found && isVersionSegment(seg) {
		rest = tail
	}

	// Extension is whatever follows the last dot; filenames may contain dots.
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		rest = rest[:dot]
	}

	if rest == "" {
		return "", false
	}
	return rest, true
}

func isVersionSegment(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
