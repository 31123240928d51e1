package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr            string
	CatalogPath         string
	LogLevel            string
	LogFormat           string
	TorrentDataDir      string
	FFMPEGPath          string // empty = discover via PATH at startup
	TranscodePreset     string
	TranscodeCRF        int
	TranscodeAudioRate  string
	ResolveTimeout      time.Duration
	MaxResidentTorrents int // LRU cap on cached torrent handles; 0 = unlimited
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":4000"),
		CatalogPath:         getEnv("CATALOG_PATH", "data/films.json"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		TorrentDataDir:      getEnv("TORRENT_DATA_DIR", "data/torrents"),
		FFMPEGPath:          strings.TrimSpace(getEnv("FFMPEG_PATH", "")),
		TranscodePreset:     getEnv("TRANSCODE_PRESET", "veryfast"),
		TranscodeCRF:        int(getEnvInt64("TRANSCODE_CRF", 23)),
		TranscodeAudioRate:  getEnv("TRANSCODE_AUDIO_BITRATE", "128k"),
		ResolveTimeout:      time.Duration(getEnvInt64("RESOLVE_TIMEOUT_SECONDS", 90)) * time.Second,
		MaxResidentTorrents: int(getEnvInt64("MAX_RESIDENT_TORRENTS", 16)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}
