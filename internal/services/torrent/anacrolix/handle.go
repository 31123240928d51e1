package anacrolix

import (
	"github.com/anacrolix/torrent"

	"filmstream/internal/domain"
	"filmstream/internal/domain/ports"
)

// streamReadahead is how far ahead of the current read position the torrent
// client requests pieces. Large enough to ride out swarm hiccups, small
// enough not to starve seeks.
const streamReadahead int64 = 16 << 20

// Handle wraps one resolved torrent. Metadata is guaranteed present: Join
// only returns after GotInfo.
type Handle struct {
	torrent *torrent.Torrent
	locator string
}

func (h *Handle) Locator() string {
	return h.locator
}

func (h *Handle) Files() []domain.FileRef {
	files := h.torrent.Files()
	refs := make([]domain.FileRef, 0, len(files))
	for i, f := range files {
		refs = append(refs, domain.FileRef{
			Index:  i,
			Path:   f.Path(),
			Length: f.Length(),
		})
	}
	return refs
}

// NewReader opens an independent seekable reader over one member file.
// Reads block until the backing pieces arrive from the swarm.
func (h *Handle) NewReader(file domain.FileRef) (ports.StreamReader, error) {
	files := h.torrent.Files()
	if file.Index < 0 || file.Index >= len(files) {
		return nil, domain.ErrNotFound
	}
	r := files[file.Index].NewReader()
	r.SetReadahead(streamReadahead)
	return r, nil
}
