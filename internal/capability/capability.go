// Package capability defines the interactive-flow variation points spec §5
// calls Selector and Editor: abstracted here so the managers never depend
// on a concrete fuzzy-finder or $EDITOR invocation, only on these two small
// interfaces. The real implementations gate themselves on an interactive
// tty the same way the teacher's isInteractiveTerminal does.
package capability

import (
	"context"
	"os"

	"golang.org/x/term"

	"github.com/aureuma/rsenv/internal/execx"
)

// Selector lets a caller choose one item from a list interactively (used by
// "env select", "branches", and similar side-commands outside this
// package's core scope).
type Selector interface {
	Select(ctx context.Context, prompt string, items []string) (string, error)
}

// Editor spawns an editor on a file and waits for it to exit.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// IsInteractive reports whether fd behaves like a real terminal, exactly as
// the teacher's initAnsiEnabled gates ANSI output on term.IsTerminal.
func IsInteractive(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// RealEditor spawns cmd (e.g. the configured "editor" setting, or $EDITOR)
// via a CommandRunner, refusing to do so when stdout is not a terminal —
// spawning an interactive editor in a non-interactive context would hang.
type RealEditor struct {
	Cmd     execx.CommandRunner
	Command string
}

func (e RealEditor) Edit(ctx context.Context, path string) error {
	if !IsInteractive(os.Stdout.Fd()) {
		return errNotInteractive{op: "edit"}
	}
	_, err := e.Cmd.Run(ctx, "", e.Command, path)
	return err
}

type errNotInteractive struct{ op string }

func (e errNotInteractive) Error() string {
	return "capability: refusing to " + e.op + ": not running in an interactive terminal"
}
