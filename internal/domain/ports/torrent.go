package ports

import (
	"context"
	"io"

	"filmstream/internal/domain"
)

// StreamReader is a seekable read stream over one member file of a torrent.
// Reads block until the backing pieces are available.
type StreamReader interface {
	io.ReadSeekCloser
	SetContext(context.Context)
	SetReadahead(int64)
}

// TorrentHandle is a live torrent session whose metadata (file list and
// lengths) is known. Handles support concurrent independent readers.
type TorrentHandle interface {
	Locator() string
	Files() []domain.FileRef
	NewReader(file domain.FileRef) (StreamReader, error)
}

// SwarmStat is a point-in-time snapshot of one resident torrent.
type SwarmStat struct {
	Locator        string  `json:"locator"`
	Name           string  `json:"name"`
	Peers          int     `json:"peers"`
	BytesCompleted int64   `json:"bytesCompleted"`
	TotalBytes     int64   `json:"totalBytes"`
	Progress       float64 `json:"progress"`
}

// Joiner turns a magnet locator into a ready torrent handle. Join blocks
// until swarm metadata is fetched or ctx is done; it is the single
// suspension point of torrent resolution.
type Joiner interface {
	Join(ctx context.Context, locator string) (TorrentHandle, error)

	// Drop releases a handle previously returned by Join.
	Drop(handle TorrentHandle)

	// Stats reports a snapshot of every torrent currently resident.
	Stats() []SwarmStat

	Close() error
}
