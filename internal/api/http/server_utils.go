package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"filmstream/internal/domain"
)

type errorEnvelope struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeStreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Film not found.")
	case errors.Is(err, domain.ErrNoMagnetLink):
		writeError(w, http.StatusBadRequest, "Film has no magnet link.")
	case errors.Is(err, domain.ErrEncoderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Transcoding unavailable: ffmpeg not found.")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseRange parses a single-range header of the form "bytes=<start>-[<end>]"
// against the given total length. Anything else, including suffix ranges,
// multi-range requests, non-numeric bounds, inverted or out-of-bounds spans,
// downgrades to a full-content response rather than a 416. Browsers recover
// from a 200 where a range was requested; they do not recover from refusals.
func parseRange(header string, total int64) (start, end int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) || total <= 0 {
		return 0, 0, false
	}
	spec := header[len(prefix):]
	dash := strings.IndexByte(spec, '-')
	if dash < 0 || strings.ContainsRune(spec, ',') {
		return 0, 0, false
	}

	startStr, endStr := spec[:dash], spec[dash+1:]
	if startStr == "" {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}

	end = total - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return 0, 0, false
		}
	}

	if start > end || end >= total {
		return 0, 0, false
	}
	return start, end, true
}
