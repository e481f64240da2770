package dispatch

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// Runner starts child processes on behalf of the dispatcher.
type Runner interface {
	// Attach runs name with args sharing the terminal's stdio and waits for it.
	Attach(ctx context.Context, name string, args ...string) error
	// Capture runs command through shell -c and collects its output.
	// A non-zero exit is reported as an *exec.ExitError alongside the output.
	Capture(ctx context.Context, shell, command string) (stdout, stderr string, err error)
}

// ExecRunner is a Runner backed by os/exec.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner wired to the process's stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Attach(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

func (r *ExecRunner) Capture(ctx context.Context, shell, command string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
