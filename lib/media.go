package lib

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind distinguishes the two families of media the classifier handles.
type Kind int

const (
	Picture Kind = iota
	Video
)

func (k Kind) String() string {
	switch k {
	case Picture:
		return "picture"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var pictureExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// TempPrefix starts the name of encoder output that has not been arbitrated
// yet. Such files are never picked up by a scan.
const TempPrefix = ".classify-"

// MediaItem is a file discovered during the scan. Its identity is its current path.
type MediaItem struct {
	Path string
	Kind Kind
	Ext  string
}

// KindOf reports the media kind for a file path based on its extension.
func KindOf(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if pictureExtensions[ext] {
		return Picture, true
	}
	if videoExtensions[ext] {
		return Video, true
	}
	return 0, false
}

// NewMediaItem builds a MediaItem for path, or reports false when the
// extension is not a supported picture or video.
func NewMediaItem(path string) (MediaItem, bool) {
	kind, ok := KindOf(path)
	if !ok {
		return MediaItem{}, false
	}
	return MediaItem{
		Path: path,
		Kind: kind,
		Ext:  strings.ToLower(filepath.Ext(path)),
	}, true
}

// Name returns the base name of the item's current path.
func (m MediaItem) Name() string {
	return filepath.Base(m.Path)
}
