package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Engine runs the external engine in the foreground.
type Engine interface {
	Run(ctx context.Context, args []string) (int, error)
}

// ProcessEngine starts the engine binary with the terminal attached.
type ProcessEngine struct {
	binary string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewProcessEngine returns an engine runner for binary using the process's
// standard streams.
func NewProcessEngine(binary string) *ProcessEngine {
	return &ProcessEngine{
		binary: strings.TrimSpace(binary),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run blocks until the engine exits and returns its exit code. A non-zero
// exit is reported through the code, not the error; the error is reserved for
// failures to start or wait. Cancelling ctx sends SIGINT and kills the engine
// if it has not exited ten seconds later.
func (e *ProcessEngine) Run(ctx context.Context, args []string) (int, error) {
	if e.binary == "" {
		return -1, errors.New("engine binary required")
	}
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start engine: %w", err)
	}
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("wait engine: %w", err)
	}
	return 0, nil
}
