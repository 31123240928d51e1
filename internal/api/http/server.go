// Package apihttp is the HTTP edge: routing, CORS, the JSON error contract
// and the two streaming modes (range passthrough and live transcode).
package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"filmstream/internal/domain/ports"
)

// FilmResolver turns a magnet locator into a ready torrent handle. Concurrent
// calls for the same locator share one resolution.
type FilmResolver interface {
	Resolve(ctx context.Context, locator string) (ports.TorrentHandle, error)
	Stats() []ports.SwarmStat
}

type Server struct {
	catalog    ports.Catalog
	resolver   FilmResolver
	transcoder ports.Transcoder
	logger     *slog.Logger
	handler    http.Handler
	wsHub      *wsHub
}

type ServerOption func(*Server)

func WithTranscoder(t ports.Transcoder) ServerOption {
	return func(s *Server) {
		s.transcoder = t
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(catalog ports.Catalog, resolver FilmResolver, opts ...ServerOption) *Server {
	s := &Server{
		catalog:  catalog,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/films", s.handleFilms)
	mux.HandleFunc("/api/stream/", s.handleStream)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleNotFound)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "filmstream",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastSwarmStats pushes the current swarm snapshot to WebSocket clients.
func (s *Server) BroadcastSwarmStats(stats []ports.SwarmStat) {
	if s.wsHub != nil {
		s.wsHub.BroadcastSwarmStats(stats)
	}
}

// streamID extracts and URL-decodes the film id from a stream path. A value
// that fails to decode is used verbatim rather than rejected.
func streamID(path string) string {
	id := strings.TrimPrefix(path, "/api/stream/")
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

// Close disconnects all WebSocket clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
