// Package media knows which file extensions mediasort handles and what kind
// of media each one is.
package media

import (
	"path/filepath"
	"strings"
)

// Kind groups extensions by how their timestamps are read.
type Kind string

const (
	// KindImage covers still image formats that usually carry EXIF.
	KindImage Kind = "image"
	// KindRaw covers camera raw formats.
	KindRaw Kind = "raw"
	// KindVideo covers container formats read with ffprobe.
	KindVideo Kind = "video"
	// KindOther is any extension outside the known sets.
	KindOther Kind = "other"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".heic": true,
	".heif": true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

var rawExtensions = map[string]bool{
	".cr2": true,
	".cr3": true,
	".nef": true,
	".arw": true,
	".dng": true,
	".orf": true,
	".rw2": true,
	".raf": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".wmv":  true,
	".mts":  true,
	".m2ts": true,
	".3gp":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
}

// KindOf returns the media kind for path based on its extension.
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return KindImage
	case rawExtensions[ext]:
		return KindRaw
	case videoExtensions[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

// ExtensionSet is a case-insensitive allow-list of file extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from extensions given with or without the
// leading dot.
func NewExtensionSet(extensions []string) ExtensionSet {
	set := make(ExtensionSet, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		set["."+ext] = struct{}{}
	}
	return set
}

// Contains reports whether path has an allowed extension. Files without an
// extension never match.
func (s ExtensionSet) Contains(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" || ext == "." {
		return false
	}
	_, ok := s[ext]
	return ok
}
