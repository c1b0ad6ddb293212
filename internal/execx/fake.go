package execx

import (
	"context"
	"fmt"
	"strings"
)

// Call records one invocation seen by Fake.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call the way it would appear on a command line, for
// assertion failure messages.
func (c Call) String() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", c.Dir, c.Name, strings.Join(c.Args, " ")))
}

// Script is one scripted response. Match, when set, must be a prefix of the
// space-joined "name arg1 arg2..." for this response to be consumed;
// otherwise responses are consumed in order regardless of command.
type Script struct {
	Match  string
	Result Result
	Err    error
}

// Fake is a scripted CommandRunner for unit tests. It never touches a real
// process; call Expect to queue responses, then run the code under test.
type Fake struct {
	Calls   []Call
	scripts []Script
	paths   map[string]string
}

var _ CommandRunner = (*Fake)(nil)

// NewFake returns an empty scripted runner.
func NewFake() *Fake {
	return &Fake{paths: map[string]string{}}
}

// Expect queues a response. Responses are matched in the order queued;
// if s.Match is non-empty, a call is only satisfied by a response whose
// Match is a prefix of "name arg1 arg2...".
func (f *Fake) Expect(s Script) {
	f.scripts = append(f.scripts, s)
}

// AllowPath registers name as resolvable by LookPath, returning resolved.
func (f *Fake) AllowPath(name, resolved string) {
	f.paths[name] = resolved
}

func (f *Fake) Run(_ context.Context, dir, name string, args ...string) (Result, error) {
	call := Call{Dir: dir, Name: name, Args: args}
	f.Calls = append(f.Calls, call)

	full := strings.TrimSpace(name + " " + strings.Join(args, " "))
	for i, s := range f.scripts {
		if s.Match != "" && !strings.HasPrefix(full, s.Match) {
			continue
		}
		f.scripts = append(f.scripts[:i], f.scripts[i+1:]...)
		return s.Result, s.Err
	}
	return Result{}, fmt.Errorf("execx/fake: no scripted response for %q", call)
}

func (f *Fake) LookPath(name string) (string, error) {
	if resolved, ok := f.paths[name]; ok {
		return resolved, nil
	}
	return "", fmt.Errorf("execx/fake: %q not on PATH", name)
}
