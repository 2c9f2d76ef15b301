package process

import "fmt"

// SpawnError reports that a child could not be created or waited for.
type SpawnError struct {
	Program string
	Op      string // "start" when empty
	Err     error
}

func (e *SpawnError) Error() string {
	op := e.Op
	if op == "" {
		op = "start"
	}
	if e.Program == "" {
		return fmt.Sprintf("spawn: %s: %v", op, e.Err)
	}
	return fmt.Sprintf("spawn %s: %s: %v", e.Program, op, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StreamError reports a failure creating or reading a capture pipe.
type StreamError struct {
	Stream string // "stdout" or "stderr"
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream: %v", e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// ExecError reports that the program image could not be loaded.
type ExecError struct {
	Program string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %q: %v", e.Program, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
