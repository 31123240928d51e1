package ports

import (
	"context"
	"io"
)

// TranscodeJob is one running encode. Output is the encoder's standard
// output; it yields a fragmented container suitable for progressive
// playback. Cancelling the ctx passed to Start kills the process.
type TranscodeJob interface {
	Output() io.ReadCloser

	// Done is closed when the encoder process exits.
	Done() <-chan struct{}

	// Err returns the exit error after Done is closed; nil on clean exit.
	Err() error

	// Diagnostics returns the trailing portion of the encoder's stderr.
	Diagnostics() string
}

// Transcoder is the external-encoder capability. The spawning mechanism
// (arguments, pipes, process lifetime) stays behind this interface so the
// streaming logic never touches os/exec.
type Transcoder interface {
	// Available reports whether an encoder executable was discovered at
	// startup, and its resolved path when it was.
	Available() (path string, ok bool)

	// Start spawns an encode consuming src as the encoder's standard input.
	// Returns domain.ErrEncoderUnavailable when no executable is configured.
	Start(ctx context.Context, src io.Reader) (TranscodeJob, error)
}
