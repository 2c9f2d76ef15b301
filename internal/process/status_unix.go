//go:build unix

package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

func decodeStatus(state *os.ProcessState) (int, string) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		if code := state.ExitCode(); code >= 0 {
			return code, ""
		}
		return AbnormalExit, "unhandled exit status"
	}
	switch {
	case ws.Exited():
		return ws.ExitStatus(), ""
	case ws.Signaled():
		return AbnormalExit, fmt.Sprintf("killed by signal %d (%s)", int(ws.Signal()), ws.Signal())
	case ws.Stopped():
		return AbnormalExit, fmt.Sprintf("stopped by signal %d (%s)", int(ws.StopSignal()), ws.StopSignal())
	case ws.Continued():
		return AbnormalExit, "continued"
	default:
		return AbnormalExit, "unhandled exit status"
	}
}

// isExecFailure reports whether a Start error means the program image could
// not be loaded, as opposed to the child not being created at all.
func isExecFailure(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, exec.ErrDot) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOEXEC) ||
		errors.Is(err, syscall.EISDIR) ||
		errors.Is(err, syscall.ENOTDIR)
}
