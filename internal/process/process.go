package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// AbnormalExit is the exit code reported for a child that did not terminate
// normally (killed or stopped by a signal, or an unknown cause).
const AbnormalExit = -1

// ErrEmptyCommand is returned when Execute is called without a program.
var ErrEmptyCommand = errors.New("empty command")

// Command is a program path followed by its arguments.
type Command []string

// Program returns the program path, or "" for an empty command.
func (c Command) Program() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Result is the captured outcome of one child execution.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Abnormal reports whether the child terminated without a normal exit.
func (r Result) Abnormal() bool {
	return r.ExitCode == AbnormalExit
}

// Runner executes commands one at a time.
type Runner struct {
	// Diagnostics appends a note to the captured stderr when the child is
	// terminated abnormally.
	Diagnostics bool

	// Environ, when set, returns extra KEY=VALUE entries appended to the
	// inherited environment of each child.
	Environ func(ctx context.Context) []string
}

// New returns a Runner.
func New(diagnostics bool) *Runner {
	return &Runner{Diagnostics: diagnostics}
}

// Execute runs cmd to completion and returns its exit status and output.
func (r *Runner) Execute(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd) == 0 {
		return Result{}, &SpawnError{Err: ErrEmptyCommand}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	stdout, err := openPipe("stdout")
	if err != nil {
		return Result{}, err
	}
	defer stdout.close()

	stderr, err := openPipe("stderr")
	if err != nil {
		return Result{}, err
	}
	defer stderr.close()

	child := exec.Command(cmd[0], cmd[1:]...)
	child.Stdout = stdout.w
	child.Stderr = stderr.w
	if r.Environ != nil {
		if extra := r.Environ(ctx); len(extra) > 0 {
			child.Env = append(os.Environ(), extra...)
		}
	}

	if err := child.Start(); err != nil {
		if isExecFailure(err) {
			return Result{}, &ExecError{Program: cmd[0], Err: err}
		}
		return Result{}, &SpawnError{Program: cmd[0], Err: err}
	}

	// The child owns its copies of the write ends; the parent's copies must be
	// closed or the drains below never see end-of-stream.
	stdout.closeWriter()
	stderr.closeWriter()

	var (
		result Result
		state  *os.ProcessState
		g      errgroup.Group
	)
	g.Go(func() error {
		data, err := stdout.drain()
		result.Stdout = data
		return err
	})
	g.Go(func() error {
		data, err := stderr.drain()
		result.Stderr = data
		return err
	})
	g.Go(func() error {
		waitErr := child.Wait()
		state = child.ProcessState
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			return &SpawnError{Program: cmd[0], Op: "wait", Err: waitErr}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if state == nil {
		return Result{}, &SpawnError{Program: cmd[0], Op: "wait", Err: errors.New("no process state")}
	}

	code, note := decodeStatus(state)
	result.ExitCode = code
	if note != "" && r.Diagnostics {
		result.Stderr = annotate(result.Stderr, note)
	}
	return result, nil
}

func annotate(stderr []byte, note string) []byte {
	if len(stderr) > 0 && stderr[len(stderr)-1] != '\n' {
		stderr = append(stderr, '\n')
	}
	return append(stderr, fmt.Sprintf("exectime: %s\n", note)...)
}

// pipe is one unidirectional capture stream. The read end stays with the
// parent; the write end is handed to the child.
type pipe struct {
	name string
	r    *os.File
	w    *os.File
}

func openPipe(name string) (*pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &StreamError{Stream: name, Err: err}
	}
	return &pipe{name: name, r: r, w: w}, nil
}

func (p *pipe) drain() ([]byte, error) {
	data, err := io.ReadAll(p.r)
	if err != nil {
		return nil, &StreamError{Stream: p.name, Err: err}
	}
	return data, nil
}

func (p *pipe) closeWriter() {
	if p.w != nil {
		_ = p.w.Close()
		p.w = nil
	}
}

func (p *pipe) close() {
	p.closeWriter()
	if p.r != nil {
		_ = p.r.Close()
		p.r = nil
	}
}
