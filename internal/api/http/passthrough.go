package apihttp

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"filmstream/internal/domain"
	"filmstream/internal/domain/ports"
	"filmstream/internal/metrics"
)

// servePassthrough streams a browser-playable file directly, honoring a
// single byte-range request. An unusable Range header serves the full file
// with a 200 instead of failing.
func (s *Server) servePassthrough(w http.ResponseWriter, r *http.Request, handle ports.TorrentHandle, file domain.FileRef) {
	reader, err := handle.NewReader(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open video stream.")
		return
	}
	defer reader.Close()
	reader.SetContext(r.Context())

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", domain.MimeType(file.Path))

	start, end, ranged := parseRange(r.Header.Get("Range"), file.Length)
	if ranged {
		if _, err := reader.Seek(start, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to open video stream.")
			return
		}
		span := domain.ByteRange{Start: start, End: end}
		w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(file.Length, 10))
		w.Header().Set("Content-Length", strconv.FormatInt(span.Length(), 10))
		w.WriteHeader(http.StatusPartialContent)

		n, err := io.CopyN(w, reader, span.Length())
		metrics.BytesStreamedTotal.WithLabelValues("passthrough").Add(float64(n))
		s.logStreamEnd(r, file, n, err)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(file.Length, 10))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, reader)
	metrics.BytesStreamedTotal.WithLabelValues("passthrough").Add(float64(n))
	s.logStreamEnd(r, file, n, err)
}

// logStreamEnd records how a passthrough transfer ended. Client disconnects
// surface as context cancellation and are routine, not errors.
func (s *Server) logStreamEnd(r *http.Request, file domain.FileRef, sent int64, err error) {
	attrs := []slog.Attr{
		slog.String("file", file.Path),
		slog.Int64("bytesSent", sent),
	}
	if err == nil || errors.Is(err, io.EOF) {
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "stream finished", attrs...)
		return
	}
	if r.Context().Err() != nil {
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "client disconnected", attrs...)
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(r.Context(), slog.LevelWarn, "stream aborted", attrs...)
}
