// Package proc wraps child-process invocation. Build scripts are batch-style
// wrappers that spawn their own children, so every tracked process runs in
// its own group and KillTree takes the whole group down.
package proc

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Output receives chunks of combined stdout/stderr as they arrive.
type Output func(chunk string)

// Proc tracks one live child process.
type Proc struct {
	cmd  *exec.Cmd
	tail *tailBuffer
}

// Start launches a command in its own process group, forwarding combined
// output to out.
func Start(name string, args []string, dir string, out Output) (*Proc, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	tail := &tailBuffer{}
	w := &chunkWriter{fn: out, tail: tail}
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return &Proc{cmd: cmd, tail: tail}, nil
}

// StartDetached launches a command fire-and-forget and releases the handle.
// The caller considers it started the moment it spawns.
func StartDetached(name string, args []string, dir string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return cmd.Process.Release()
}

// Wait blocks until the process exits. Exit code 0 is the only success;
// anything else comes back as an *ExitError carrying the output tail.
func (p *Proc) Wait() error {
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return &ExitError{Code: exitErr.ExitCode(), Output: p.tail.String()}
	}
	return err
}

func (p *Proc) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// KillTree forcibly terminates the process and everything it spawned.
func (p *Proc) KillTree() error {
	if p.cmd.Process == nil {
		return nil
	}
	return killTree(p.cmd.Process.Pid)
}

// ExitError reports a non-zero exit along with the tail of captured output.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("process exited with code %d", e.Code)
	}
	return fmt.Sprintf("process exited with code %d: %s", e.Code, strings.TrimSpace(e.Output))
}

type chunkWriter struct {
	fn   Output
	tail *tailBuffer
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.tail.add(p)
	if w.fn != nil {
		w.fn(string(p))
	}
	return len(p), nil
}

const tailLimit = 8 * 1024

// tailBuffer keeps the last few KB of output for error reporting.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (t *tailBuffer) add(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if t.buf.Len() > tailLimit {
		b := t.buf.Bytes()
		trimmed := make([]byte, tailLimit)
		copy(trimmed, b[len(b)-tailLimit:])
		t.buf.Reset()
		t.buf.Write(trimmed)
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
