package apihttp

import (
	"fmt"
	"log/slog"
	"net/http"

	"filmstream/internal/domain"
)

type healthResponse struct {
	Status          string  `json:"status"`
	FFmpegAvailable bool    `json:"ffmpegAvailable"`
	FFmpegPath      *string `json:"ffmpegPath"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.transcoder != nil {
		if path, ok := s.transcoder.Available(); ok {
			resp.FFmpegAvailable = true
			resp.FFmpegPath = &path
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type filmsResponse struct {
	Films []domain.Film `json:"films"`
}

func (s *Server) handleFilms(w http.ResponseWriter, r *http.Request) {
	films, err := s.catalog.List(r.Context())
	if err != nil {
		s.logger.Error("catalog list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to load films.")
		return
	}
	if films == nil {
		films = []domain.Film{}
	}
	writeJSON(w, http.StatusOK, filmsResponse{Films: films})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	id := streamID(r.URL.Path)
	film, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeStreamError(w, err)
		return
	}
	if film.MagnetLink == "" {
		writeStreamError(w, domain.ErrNoMagnetLink)
		return
	}

	handle, err := s.resolver.Resolve(r.Context(), film.MagnetLink)
	if err != nil {
		s.logger.Error("torrent resolution failed",
			slog.String("filmId", film.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start stream: %v", err))
		return
	}

	file, ok := domain.PickVideoFile(handle.Files())
	if !ok {
		writeError(w, http.StatusNotFound, "No video file found in torrent.")
		return
	}

	if domain.IsBrowserSafe(file.Path) {
		s.servePassthrough(w, r, handle, file)
		return
	}
	s.serveTranscode(w, r, handle, file)
}
