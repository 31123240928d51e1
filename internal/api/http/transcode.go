package apihttp

import (
	"io"
	"log/slog"
	"net/http"

	"filmstream/internal/domain"
	"filmstream/internal/domain/ports"
	"filmstream/internal/metrics"
)

// serveTranscode pipes a non-browser-playable file through the encoder into
// a live fragmented MP4 response. Encoder availability is checked before the
// source stream is opened so an unconfigured encoder costs nothing.
func (s *Server) serveTranscode(w http.ResponseWriter, r *http.Request, handle ports.TorrentHandle, file domain.FileRef) {
	if s.transcoder == nil {
		writeStreamError(w, domain.ErrEncoderUnavailable)
		return
	}
	if _, ok := s.transcoder.Available(); !ok {
		writeStreamError(w, domain.ErrEncoderUnavailable)
		return
	}

	reader, err := handle.NewReader(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open video stream.")
		return
	}
	defer reader.Close()
	// Request cancellation propagates to the reader and, through
	// exec.CommandContext, kills the encoder. Nothing outlives the request.
	reader.SetContext(r.Context())

	job, err := s.transcoder.Start(r.Context(), reader)
	if err != nil {
		writeStreamError(w, err)
		return
	}
	defer job.Output().Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Accept-Ranges", "none")
	w.WriteHeader(http.StatusOK)

	var out io.Writer = w
	if f, ok := w.(http.Flusher); ok {
		out = flushWriter{w: w, f: f}
	}

	n, copyErr := io.Copy(out, job.Output())
	metrics.BytesStreamedTotal.WithLabelValues("transcode").Add(float64(n))

	<-job.Done()
	attrs := []slog.Attr{
		slog.String("file", file.Path),
		slog.Int64("bytesSent", n),
	}
	switch {
	case r.Context().Err() != nil:
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "transcode cancelled by client", attrs...)
	case job.Err() != nil:
		attrs = append(attrs,
			slog.String("error", job.Err().Error()),
			slog.String("stderr", job.Diagnostics()),
		)
		s.logger.LogAttrs(r.Context(), slog.LevelError, "transcode failed", attrs...)
	case copyErr != nil:
		attrs = append(attrs, slog.String("error", copyErr.Error()))
		s.logger.LogAttrs(r.Context(), slog.LevelWarn, "transcode output aborted", attrs...)
	default:
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "transcode finished", attrs...)
	}
}

// flushWriter flushes after every write so encoded fragments reach the
// client as they are produced instead of sitting in the response buffer.
type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 {
		fw.f.Flush()
	}
	return n, err
}
