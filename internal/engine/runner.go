package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultBinary is the backup engine invoked when none is configured.
const DefaultBinary = "duplicity"

// PassphraseEnv is the environment variable the engine reads the
// encryption secret from.
const PassphraseEnv = "PASSPHRASE"

const waitDelay = 30 * time.Second

// ErrStart indicates the engine process could not be started at all.
var ErrStart = errors.New("engine failed to start")

// Invocation is one call of the engine.
type Invocation struct {
	Args []string
	// Env is laid over the current process environment.
	Env map[string]string
}

// Result is what the engine printed and how it exited.
type Result struct {
	// Output holds stdout and stderr in the order they were written.
	Output   string
	ExitCode int
}

// Runner runs the backup engine to completion.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// ExecRunner runs the engine as a child process.
type ExecRunner struct {
	binary    string
	timeout   time.Duration
	waitDelay time.Duration
}

// Ensure ExecRunner satisfies Runner.
var _ Runner = (*ExecRunner)(nil)

// WithBinary overrides the engine executable.
func WithBinary(binary string) Option {
	return func(r *ExecRunner) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// WithTimeout kills the engine after d. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *ExecRunner) {
		r.timeout = d
	}
}

// NewExecRunner returns an ExecRunner for the default engine binary plus any
// overrides.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{binary: DefaultBinary, waitDelay: waitDelay}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the executable the runner invokes.
func (r *ExecRunner) Binary() string {
	return r.binary
}

// Run starts the engine and waits for it. A nonzero exit is reported in
// Result, not as an error; the error is only set when the process could not
// be started. If the engine exits but a child keeps the output open past the
// wait delay, the engine's own exit code is kept.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, inv.Args...)
	// Children of the engine (ssh) may hold the output pipe after a kill.
	cmd.WaitDelay = r.waitDelay
	cmd.Env = os.Environ()
	for k, v := range inv.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// A single writer for both streams keeps their interleaving.
	out := new(lockedBuffer)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	res := Result{Output: out.String(), ExitCode: cmd.ProcessState.ExitCode()}
	if err == nil {
		return res, nil
	}

	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		res.Output += fmt.Sprintf("%s: %v\n", r.binary, err)
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			res.Output += fmt.Sprintf("%s: %v\n", r.binary, ctx.Err())
		}
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
		return res, nil
	}
	return Result{Output: res.Output, ExitCode: -1}, fmt.Errorf("%w: %s: %v", ErrStart, r.binary, err)
}

// lockedBuffer can still be written by the copy goroutine after Wait gives
// up on it at the wait delay.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
