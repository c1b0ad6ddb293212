package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Real shells out via os/exec, capturing stdout and stderr the same way the
// teacher's git.go helpers do.
type Real struct{}

var _ CommandRunner = Real{}

func (Real) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

func (Real) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
