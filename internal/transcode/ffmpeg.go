// Package transcode spawns ffmpeg to rewrap non-browser-playable video as a
// live fragmented MP4 stream. The encoder is treated as a capability: it is
// discovered once at startup and every job runs behind ports.Transcoder.
package transcode

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"filmstream/internal/domain"
	"filmstream/internal/domain/ports"
	"filmstream/internal/metrics"
)

// Locate resolves the encoder executable once at process start. An explicit
// path wins over PATH discovery and is trusted as-is; discovery failure
// leaves the transcode path disabled for the process lifetime.
func Locate(explicitPath string) (string, bool) {
	if explicitPath != "" {
		return explicitPath, true
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", false
	}
	return path, true
}

type Options struct {
	Preset       string
	CRF          int
	AudioBitrate string
}

// buildArgs constructs the ffmpeg argument list for a pipe-to-pipe encode:
// H.264 video, AAC audio when an audio stream exists (the trailing "?" keeps
// audioless sources from aborting the job), fragmented MP4 so playback can
// start before the stream length is known.
func buildArgs(opts Options) []string {
	return []string{
		"-loglevel", "error",
		"-i", "pipe:0",
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-crf", strconv.Itoa(opts.CRF),
		"-c:a", "aac",
		"-b:a", opts.AudioBitrate,
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
		"pipe:1",
	}
}

type FFmpeg struct {
	path   string // empty when no encoder was discovered
	opts   Options
	logger *slog.Logger
}

func New(path string, opts Options, logger *slog.Logger) *FFmpeg {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Preset == "" {
		opts.Preset = "veryfast"
	}
	if opts.CRF <= 0 {
		opts.CRF = 23
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "128k"
	}
	return &FFmpeg{path: path, opts: opts, logger: logger}
}

func (f *FFmpeg) Available() (string, bool) {
	return f.path, f.path != ""
}

// Start spawns the encoder consuming src on stdin. Cancelling ctx kills the
// process; no encoder may outlive its request.
func (f *FFmpeg) Start(ctx context.Context, src io.Reader) (ports.TranscodeJob, error) {
	if f.path == "" {
		return nil, domain.ErrEncoderUnavailable
	}

	cmd := exec.CommandContext(ctx, f.path, buildArgs(f.opts)...)
	cmd.Stdin = src
	// stdin is a blocking torrent reader; without a wait delay, Wait can
	// hang on the stdin copy goroutine after the process is killed.
	cmd.WaitDelay = 5 * time.Second

	stderr := newTailBuffer(stderrTailLimit)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		return nil, err
	}
	metrics.TranscodeStartsTotal.Inc()
	metrics.TranscodeActiveJobs.Inc()

	job := &job{
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}

	go func() {
		job.err = cmd.Wait()
		close(job.done)
		metrics.TranscodeActiveJobs.Dec()
		if job.err == nil {
			return
		}
		// A cancelled context means the client tore the stream down and we
		// killed the process; that is routine, not an encoder failure.
		if ctx.Err() != nil {
			f.logger.Debug("ffmpeg stopped after cancellation",
				slog.String("error", job.err.Error()),
			)
			return
		}
		metrics.TranscodeFailuresTotal.Inc()
		f.logger.Error("ffmpeg exited with error",
			slog.String("error", job.err.Error()),
			slog.String("stderr", stderr.String()),
		)
	}()

	return job, nil
}

type job struct {
	stdout io.ReadCloser
	stderr *tailBuffer
	done   chan struct{}
	err    error
}

func (j *job) Output() io.ReadCloser { return j.stdout }

func (j *job) Done() <-chan struct{} { return j.done }

func (j *job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

func (j *job) Diagnostics() string {
	return j.stderr.String()
}
