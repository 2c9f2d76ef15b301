// Package process runs a single external command as an isolated child and
// captures everything it writes to standard output and standard error.
//
// # Lifecycle
//
// [Runner.Execute] creates two private pipes, starts the child with its
// stdout and stderr attached to the write ends, and then runs three
// activities in parallel until all of them finish:
//
//   - waiting for the child to exit
//   - draining the stdout pipe to end-of-stream
//   - draining the stderr pipe to end-of-stream
//
// Draining while waiting is required: a child that writes more than the
// kernel pipe buffer would otherwise block on write forever while the parent
// blocks on wait.
//
// # Exit status
//
// A child that exits normally reports its exit code (0-255). A child
// terminated by a signal reports [AbnormalExit]; when [Runner.Diagnostics] is
// set, a short note naming the signal is appended to the captured stderr.
//
// # Errors
//
//   - [SpawnError]: the child could not be created or waited for
//   - [StreamError]: a capture pipe could not be created or read
//   - [ExecError]: the program image could not be loaded (missing binary,
//     not executable, permission denied)
//
// A nonzero exit code is not an error.
//
// There is no timeout. A child that never exits blocks Execute forever; the
// context passed to Execute is only consulted before the child is started.
package process
