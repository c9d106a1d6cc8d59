package agentproc

import "time"

// Default configuration values.
const (
	defaultOutputBuffer  = 64
	defaultScannerBuffer = 1 << 20
	defaultGracePeriod   = 5 * time.Second
)

// ProcOptions holds resolved construction-time configuration for a Proc.
type ProcOptions struct {
	// OutputBuffer is the channel buffer size for the Event output
	// channel.
	OutputBuffer int

	// ScannerBuffer is the maximum line size in bytes for the stdout
	// scanner.
	ScannerBuffer int

	// GracePeriod is how long Stop waits after SIGTERM before sending
	// SIGKILL.
	GracePeriod time.Duration
}

// Option configures a Proc at construction time.
type Option func(*ProcOptions)

// WithOutputBuffer sets the channel buffer size. Values <= 0 are
// ignored.
func WithOutputBuffer(size int) Option {
	return func(o *ProcOptions) {
		if size > 0 {
			o.OutputBuffer = size
		}
	}
}

// WithScannerBuffer sets the maximum scanner line size in bytes. Values
// <= 0 are ignored.
func WithScannerBuffer(size int) Option {
	return func(o *ProcOptions) {
		if size > 0 {
			o.ScannerBuffer = size
		}
	}
}

// WithGracePeriod sets the SIGTERM-to-SIGKILL grace period. Values <= 0
// are ignored.
func WithGracePeriod(d time.Duration) Option {
	return func(o *ProcOptions) {
		if d > 0 {
			o.GracePeriod = d
		}
	}
}

func resolveOptions(opts ...Option) ProcOptions {
	o := ProcOptions{
		OutputBuffer:  defaultOutputBuffer,
		ScannerBuffer: defaultScannerBuffer,
		GracePeriod:   defaultGracePeriod,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
