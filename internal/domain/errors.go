package domain

import "errors"

var (
	// ErrNotFound covers unknown film ids and torrents without any files.
	ErrNotFound = errors.New("not found")

	// ErrNoMagnetLink marks a catalog record that carries no torrent locator.
	ErrNoMagnetLink = errors.New("film has no magnet link")

	// ErrEncoderUnavailable is returned for transcode requests when no ffmpeg
	// executable was discovered at startup. Stable for the process lifetime.
	ErrEncoderUnavailable = errors.New("encoder unavailable")

	// ErrResolution wraps swarm/metadata failures from the torrent engine.
	ErrResolution = errors.New("torrent resolution failed")
)
