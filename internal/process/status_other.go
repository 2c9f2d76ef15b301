//go:build !unix

package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
)

func decodeStatus(state *os.ProcessState) (int, string) {
	code := state.ExitCode()
	if code < 0 {
		return AbnormalExit, fmt.Sprintf("terminated abnormally: %s", state)
	}
	return code, ""
}

func isExecFailure(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, exec.ErrDot) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}
