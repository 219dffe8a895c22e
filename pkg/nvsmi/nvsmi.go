// Package nvsmi invokes nvidia-smi and captures its machine-readable output.
package nvsmi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ShawonAshraf/find-free-gpu/pkg/logging"
	shellwords "github.com/mattn/go-shellwords"
)

const (
	bin       = "nvidia-smi"
	queryArg  = "--query-gpu=index,name,memory.used,memory.total"
	formatArg = "--format=csv,noheader,nounits"
)

// ErrCommandNotFound indicates that the query binary is not installed or not
// in PATH.
var ErrCommandNotFound = errors.New("nvidia-smi not found")

// ExecError indicates that the query command ran but exited non-zero. Stderr
// holds whatever the command printed there, e.g. "NVIDIA-SMI has failed".
type ExecError struct {
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("nvidia-smi: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("nvidia-smi: %v", e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Querier hides the external command invocation so that everything downstream
// of it can be tested without GPU hardware.
type Querier interface {
	Query(ctx context.Context) ([]byte, error)
}

// CLI queries GPU state by shelling out to nvidia-smi, or to a user-supplied
// replacement command.
type CLI struct {
	log  logging.Logger
	argv []string
}

func New(log logging.Logger) *CLI {
	return &CLI{log: log, argv: []string{bin}}
}

// NewWithCommand builds a CLI around a custom command line, e.g.
// "ssh gpubox nvidia-smi". The string is split with shell quoting rules.
func NewWithCommand(log logging.Logger, command string) (*CLI, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("invalid query command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty query command")
	}
	return &CLI{log: log, argv: argv}, nil
}

// Query runs the query command and returns its raw stdout.
func (c *CLI) Query(ctx context.Context) ([]byte, error) {
	args := append(append([]string{}, c.argv[1:]...), queryArg, formatArg)
	c.log.Debugf("running %s %s", c.argv[0], strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w (%s)", ErrCommandNotFound, c.argv[0])
		}
		return nil, &ExecError{Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}
