package domain

import (
	"path"
	"strings"
)

// videoExtensions is the set of container extensions treated as video when
// picking a file from a torrent's metadata. No content probing happens; the
// extension is the only signal available before any bytes are downloaded.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".webm": {},
	".mov":  {},
	".m4v":  {},
}

// browserSafeExtensions are containers standard HTML video elements play
// natively. Anything else goes through the transcode path.
var browserSafeExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".m4v":  {},
}

func IsVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

func IsBrowserSafe(name string) bool {
	_, ok := browserSafeExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// MimeType maps a file name to the Content-Type served for it.
func MimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

// PickVideoFile deterministically selects the file to serve from a torrent's
// file list:
//
//  1. files with a known video extension; if none, the first file in the list
//     (single-file torrents often lack a recognized extension);
//  2. among video files, prefer browser-safe containers, largest first (the
//     main feature rather than a trailer or sample);
//  3. otherwise the largest video file, which will require transcoding.
//
// Ties on length keep the earlier list position.
func PickVideoFile(files []FileRef) (FileRef, bool) {
	if len(files) == 0 {
		return FileRef{}, false
	}

	var videos []FileRef
	for _, f := range files {
		if IsVideo(f.Path) {
			videos = append(videos, f)
		}
	}
	if len(videos) == 0 {
		return files[0], true
	}

	var safe []FileRef
	for _, f := range videos {
		if IsBrowserSafe(f.Path) {
			safe = append(safe, f)
		}
	}
	if len(safe) > 0 {
		return largestFile(safe), true
	}
	return largestFile(videos), true
}

func largestFile(files []FileRef) FileRef {
	best := files[0]
	for _, f := range files[1:] {
		if f.Length > best.Length {
			best = f
		}
	}
	return best
}
