package transcode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"filmstream/internal/domain"
	"filmstream/internal/metrics"
)

func TestBuildArgs(t *testing.T) {
	args := buildArgs(Options{Preset: "veryfast", CRF: 23, AudioBitrate: "128k"})

	got := strings.Join(args, " ")
	want := "-loglevel error -i pipe:0 -map 0:v:0 -map 0:a:0? " +
		"-c:v libx264 -preset veryfast -crf 23 -c:a aac -b:a 128k " +
		"-movflags frag_keyframe+empty_moov+default_base_moof -f mp4 pipe:1"
	if got != want {
		t.Fatalf("args mismatch:\n got:  %s\n want: %s", got, want)
	}
}

func TestBuildArgsHonorsOptions(t *testing.T) {
	args := buildArgs(Options{Preset: "slow", CRF: 18, AudioBitrate: "192k"})
	joined := strings.Join(args, " ")
	for _, frag := range []string{"-preset slow", "-crf 18", "-b:a 192k"} {
		if !strings.Contains(joined, frag) {
			t.Errorf("args missing %q: %s", frag, joined)
		}
	}
}

func TestTailBufferKeepsTrailingBytes(t *testing.T) {
	tb := newTailBuffer(10)

	if _, err := tb.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if got := tb.String(); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	if _, err := tb.Write([]byte(" cruel world")); err != nil {
		t.Fatal(err)
	}
	if got := tb.String(); got != "ruel world" {
		t.Fatalf("got %q, want last 10 bytes %q", got, "ruel world")
	}
}

func TestTailBufferLargeSingleWrite(t *testing.T) {
	tb := newTailBuffer(4)
	if _, err := tb.Write([]byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	if got := tb.String(); got != "6789" {
		t.Fatalf("got %q, want %q", got, "6789")
	}
}

func TestStartWithoutEncoder(t *testing.T) {
	f := New("", Options{}, nil)

	if _, ok := f.Available(); ok {
		t.Fatal("encoder reported available with empty path")
	}
	_, err := f.Start(context.Background(), strings.NewReader(""))
	if !errors.Is(err, domain.ErrEncoderUnavailable) {
		t.Fatalf("got %v, want ErrEncoderUnavailable", err)
	}
}

// stubEncoder writes a shell script standing in for ffmpeg. It ignores the
// argument list and runs the given body.
func stubEncoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encoder.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCancellationKillsEncoder(t *testing.T) {
	f := New(stubEncoder(t, "cat >/dev/null"), Options{}, discardLogger())

	// The source never produces bytes, so the stub blocks on stdin the way
	// ffmpeg blocks on a stalled torrent reader.
	src, srcWriter := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	job, err := f.Start(ctx, src)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	before := testutil.ToFloat64(metrics.TranscodeFailuresTotal)

	cancel()
	srcWriter.Close()

	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("encoder still running after cancellation")
	}
	if job.Err() == nil {
		t.Fatal("expected a kill error after cancellation")
	}

	// The exit handler runs just after Done closes; give it a moment.
	time.Sleep(100 * time.Millisecond)
	if after := testutil.ToFloat64(metrics.TranscodeFailuresTotal); after != before {
		t.Fatalf("cancellation counted as encoder failure: %v -> %v", before, after)
	}
}

func TestEncoderFailureIsCounted(t *testing.T) {
	f := New(stubEncoder(t, "echo boom >&2; exit 1"), Options{}, discardLogger())

	before := testutil.ToFloat64(metrics.TranscodeFailuresTotal)

	job, err := f.Start(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("encoder did not exit")
	}
	if job.Err() == nil {
		t.Fatal("expected a non-zero exit error")
	}
	if !strings.Contains(job.Diagnostics(), "boom") {
		t.Fatalf("diagnostics = %q, want stderr tail", job.Diagnostics())
	}

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(metrics.TranscodeFailuresTotal) != before+1 {
		if time.Now().After(deadline) {
			t.Fatalf("failure counter not incremented: still %v", testutil.ToFloat64(metrics.TranscodeFailuresTotal))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	f := New("/usr/bin/ffmpeg", Options{}, nil)
	if f.opts.Preset != "veryfast" || f.opts.CRF != 23 || f.opts.AudioBitrate != "128k" {
		t.Fatalf("unexpected defaults: %+v", f.opts)
	}
	if path, ok := f.Available(); !ok || path != "/usr/bin/ffmpeg" {
		t.Fatalf("Available() = %q, %v", path, ok)
	}
}
