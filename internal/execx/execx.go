// Package execx is the Command capability: every component that shells out
// to an external binary (git, sops, age, gpg) depends on this interface
// instead of os/exec directly, so tests can substitute a scripted runner.
package execx

import "context"

// Result is the captured outcome of a Run call.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner abstracts external process invocation.
type CommandRunner interface {
	// Run executes name with args, with the working directory set to dir
	// (the empty string means the caller's own working directory), and
	// returns its captured stdout/stderr. A non-zero exit still returns a
	// populated Result; err is non-nil only when the process could not be
	// started or did not exit cleanly for a reason other than a non-zero
	// status (see Result.ExitCode for that).
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)

	// LookPath reports whether name can be found on PATH.
	LookPath(name string) (string, error)
}
