// Package tuitest drives terminal programs through a pseudo terminal so
// integration tests can script keystrokes and assert on rendered screens.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultCols    = 120
	defaultRows    = 32
	defaultTimeout = 5 * time.Second
)

// Step is one scripted interaction: wait, then type.
type Step struct {
	Wait time.Duration
	Keys []byte
}

// Options controls how the program under test is spawned.
type Options struct {
	Command []string
	Dir     string
	Env     []string
	Cols    int
	Rows    int
	Timeout time.Duration
	// AllowSignalExit tolerates the program dying to a signal, for scripts
	// that end with Ctrl+C.
	AllowSignalExit bool
}

// Run spawns the command inside a PTY, replays the script, and captures
// everything the program writes until it exits.
func Run(ctx context.Context, opts Options, script ...Step) (*Result, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cols := opts.Cols
	if cols <= 0 {
		cols = defaultCols
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = defaultRows
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = mergeEnv(opts.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start %s: %w", opts.Command[0], err)
	}
	defer func() { _ = ptmx.Close() }()

	var captured bytes.Buffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		probe := newQueryResponder(ptmx)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				probe.Feed(chunk)
				captured.Write(chunk)
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	for _, step := range script {
		if step.Wait > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tuitest: script interrupted: %w", ctx.Err())
			case <-time.After(step.Wait):
			}
		}
		if len(step.Keys) > 0 {
			if _, err := ptmx.Write(step.Keys); err != nil {
				return nil, fmt.Errorf("tuitest: send keys: %w", err)
			}
		}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil && !exitTolerated(err, opts.AllowSignalExit) {
			return nil, fmt.Errorf("tuitest: program failed: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: program still running: %w", ctx.Err())
	}

	// Closing the PTY unblocks the reader so it can drain the tail.
	_ = ptmx.Close()
	<-drained

	raw := captured.Bytes()
	return &Result{Raw: raw, Frames: splitFrames(raw), Elapsed: time.Since(start)}, nil
}

func exitTolerated(err error, allowSignals bool) bool {
	if !allowSignals {
		return false
	}
	var exitErr *exec.ExitError
	// -1 means the process died to a signal rather than calling exit.
	return errors.As(err, &exitErr) && exitErr.ExitCode() == -1
}

func mergeEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

var (
	// KeyEnter sends a carriage return.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC asks the program to quit.
	KeyCtrlC = []byte{3}
	// KeyEsc leaves overlays and clears inputs.
	KeyEsc = []byte{27}
	// KeyCtrlR resets the session.
	KeyCtrlR = []byte{18}
	// KeyCtrlO toggles the help panels.
	KeyCtrlO = []byte{15}
)

// Text encodes literal characters for a script step.
func Text(s string) []byte {
	return []byte(s)
}
