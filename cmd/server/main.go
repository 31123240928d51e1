package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "filmstream/internal/api/http"
	"filmstream/internal/app"
	"filmstream/internal/catalog"
	"filmstream/internal/metrics"
	"filmstream/internal/resolver"
	"filmstream/internal/services/torrent/anacrolix"
	"filmstream/internal/telemetry"
	"filmstream/internal/transcode"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "filmstream")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ffmpegPath, ffmpegOK := transcode.Locate(cfg.FFMPEGPath)
	if !ffmpegOK {
		logger.Warn("ffmpeg not found, transcode streaming disabled")
	}

	logger.Info("configuration loaded",
		slog.String("service", "filmstream"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("catalogPath", cfg.CatalogPath),
		slog.String("dataDir", cfg.TorrentDataDir),
		slog.String("ffmpegPath", ffmpegPath),
		slog.Int("maxResidentTorrents", cfg.MaxResidentTorrents),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.NewStore(cfg.CatalogPath, logger)
	if err != nil {
		logger.Error("catalog init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine, err := anacrolix.New(anacrolix.Config{DataDir: cfg.TorrentDataDir}, logger)
	if err != nil {
		logger.Error("torrent engine init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	films := resolver.New(engine, resolver.Config{
		ResolveTimeout: cfg.ResolveTimeout,
		MaxResident:    cfg.MaxResidentTorrents,
	}, logger)

	encoder := transcode.New(ffmpegPath, transcode.Options{
		Preset:       cfg.TranscodePreset,
		CRF:          cfg.TranscodeCRF,
		AudioBitrate: cfg.TranscodeAudioRate,
	}, logger)

	handler := apihttp.NewServer(store, films,
		apihttp.WithLogger(logger),
		apihttp.WithTranscoder(encoder),
	)

	// Periodically refresh swarm gauges and push snapshots to ws clients.
	go updateSwarmMetrics(rootCtx, films, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streaming responses are open-ended; a write timeout would cut
		// long playback sessions.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := films.Close(); err != nil {
		logger.Warn("resolver close error", slog.String("error", err.Error()))
	}
	if err := store.Close(); err != nil {
		logger.Warn("catalog close error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func updateSwarmMetrics(ctx context.Context, films *resolver.Resolver, handler *apihttp.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := films.Stats()
			metrics.ResidentTorrents.Set(float64(len(stats)))
			var peers int64
			for _, st := range stats {
				peers += int64(st.Peers)
			}
			metrics.PeersConnected.Set(float64(peers))
			handler.BroadcastSwarmStats(stats)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
