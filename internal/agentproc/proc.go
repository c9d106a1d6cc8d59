//go:build !windows

package agentproc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/avllis/turnstream"
	"github.com/avllis/turnstream/internal/applog"
)

// Proc is an active Codex subprocess session. Codex's exec command is
// single-shot: each turn spawns a fresh subprocess (resume-per-turn),
// unlike a long-lived stdin-streaming backend. One Proc represents the
// whole session across however many subprocesses that implies.
//
// Proc is not safe for concurrent Send calls; the dispatcher loop in §5
// serializes all interaction through one goroutine.
type Proc struct {
	session Session
	opts    ProcOptions
	log     *applog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	replacing bool
	dec       decoder
	output    chan turnstream.Event

	cmdDone chan struct{} // buffered(1); signaled by every readLoop's defer
	done    chan struct{} // closed exactly once by finish()
	termErr error

	stopping   atomic.Bool
	stopOnce   sync.Once
	finishOnce sync.Once
}

// Start launches the first turn of a session: "codex exec --json -- <prompt>".
func Start(ctx context.Context, session Session, opts ...Option) (*Proc, error) {
	_ = ctx // reserved for a future start timeout; lifetime is controlled via Stop.

	if !filepath.IsAbs(session.CWD) {
		return nil, fmt.Errorf("agentproc: CWD must be an absolute path, got %q", session.CWD)
	}
	info, err := os.Stat(session.CWD)
	if err != nil {
		return nil, fmt.Errorf("agentproc: CWD: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("agentproc: CWD is not a directory: %s", session.CWD)
	}

	binary, err := exec.LookPath(binaryOf(session))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, binaryOf(session), err)
	}

	o := resolveOptions(opts...)
	log := applog.Default().WithSessionID(session.ID)
	p := &Proc{
		session: session,
		opts:    o,
		log:     log,
		output:  make(chan turnstream.Event, o.OutputBuffer),
		cmdDone: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.dec.log = log

	cmd, stdout, err := spawn(binary, buildExecArgs(session), session.CWD)
	if err != nil {
		return nil, fmt.Errorf("agentproc: start: %w", err)
	}
	p.cmd = cmd
	log.Debug("agent subprocess started",
		zap.String("binary", binary),
		zap.Int("pid", cmd.Process.Pid))
	go p.readLoop(stdout)
	return p, nil
}

// Output returns the channel of translated Events. Closed when the
// current subprocess ends. Callers that want a stable channel across
// the whole session should call Output() again after each Send, since
// each turn spawns a fresh subprocess with its own channel.
func (p *Proc) Output() <-chan turnstream.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

// Send spawns the next turn's subprocess via "codex exec resume --json
// -- <thread_id> <message>", replacing the previous subprocess; a
// previous subprocess that is still running is sent SIGTERM first and
// Send waits for it to exit. Returns ErrNoThreadID if SessionConfigured
// has not yet been observed, and ErrTerminated once Stop has been called.
func (p *Proc) Send(ctx context.Context, message string) error {
	if p.stopping.Load() {
		return ErrTerminated
	}

	p.mu.Lock()
	threadID := p.dec.threadID
	oldCmd := p.cmd
	p.mu.Unlock()
	if threadID == "" {
		return ErrNoThreadID
	}

	binary, err := exec.LookPath(binaryOf(p.session))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, binaryOf(p.session), err)
	}

	p.mu.Lock()
	p.replacing = true
	p.mu.Unlock()

	if oldCmd != nil {
		_ = signalProcess(oldCmd.Process, syscall.SIGTERM)
		select {
		case <-p.cmdDone:
		case <-ctx.Done():
			_ = signalProcess(oldCmd.Process, os.Kill)
			<-p.cmdDone
			p.finishReplacement(ctx.Err())
			return ctx.Err()
		}
	}

	cmd, stdout, err := spawn(binary, buildResumeArgs(p.session, threadID, message), p.session.CWD)
	if err != nil {
		p.finishReplacement(fmt.Errorf("agentproc: resume: %w", err))
		return err
	}
	p.log.Debug("resuming turn",
		zap.String("thread_id", threadID),
		zap.Int("pid", cmd.Process.Pid))

	// Drain a stale cmdDone signal left by the just-finished subprocess.
	select {
	case <-p.cmdDone:
	default:
	}

	if p.stopping.Load() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return ErrTerminated
	}

	p.mu.Lock()
	p.cmd = cmd
	p.replacing = false
	p.output = make(chan turnstream.Event, p.opts.OutputBuffer)
	p.done = make(chan struct{})
	p.finishOnce = sync.Once{}
	p.termErr = nil
	p.mu.Unlock()

	go p.readLoop(stdout)
	return nil
}

func (p *Proc) finishReplacement(err error) {
	p.mu.Lock()
	p.replacing = false
	p.mu.Unlock()
	p.finish(err)
	select {
	case p.cmdDone <- struct{}{}:
	default:
	}
}

// Stop terminates the current subprocess: SIGTERM, then SIGKILL after
// GracePeriod. Safe to call multiple times; blocks until the output
// channel is closed.
func (p *Proc) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
		p.log.Debug("stopping agent subprocess")
		p.mu.Lock()
		cmd := p.cmd
		p.mu.Unlock()
		if cmd == nil || cmd.Process == nil {
			p.finish(nil)
			return
		}
		_ = signalProcess(cmd.Process, syscall.SIGTERM)
		select {
		case <-p.cmdDone:
		case <-time.After(p.opts.GracePeriod):
			_ = signalProcess(cmd.Process, os.Kill)
			<-p.cmdDone
		case <-ctx.Done():
			_ = signalProcess(cmd.Process, os.Kill)
			<-p.cmdDone
		}
	})
	<-p.done
	return p.termErr
}

// Wait blocks until the current subprocess ends naturally.
func (p *Proc) Wait() error {
	<-p.done
	return p.termErr
}

// Err returns the terminal error, or nil if still running.
func (p *Proc) Err() error {
	select {
	case <-p.done:
		return p.termErr
	default:
		return nil
	}
}

func (p *Proc) finish(err error) {
	p.finishOnce.Do(func() {
		p.termErr = err
		p.mu.Lock()
		out := p.output
		p.mu.Unlock()
		close(out)
		close(p.done)
	})
}

func spawn(binary string, args []string, dir string) (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, stdout, nil
}

func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// readLoop reads the subprocess's stdout line by line, translating each
// line into Events via decodeLine and pushing them to the output
// channel, until the subprocess exits.
func (p *Proc) readLoop(stdout io.ReadCloser) {
	defer func() {
		p.mu.Lock()
		cmd := p.cmd
		replacing := p.replacing
		p.mu.Unlock()

		waitErr := wrapExitError(cmd.Wait())
		if p.stopping.Load() {
			waitErr = ErrTerminated
		}
		if !replacing {
			p.finish(waitErr)
		}
		select {
		case p.cmdDone <- struct{}{}:
		default:
		}
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), p.opts.ScannerBuffer)
	for scanner.Scan() {
		line := scanner.Text()
		p.mu.Lock()
		events := p.dec.decodeLine(line)
		out := p.output
		p.mu.Unlock()
		for _, ev := range events {
			out <- ev
		}
	}
}

func wrapExitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	if ee.ExitCode() == 0 {
		return nil
	}
	return err
}
