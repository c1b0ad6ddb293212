package execx

import (
	"context"
	"runtime"
	"testing"
)

func TestRealRunCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo semantics differ on windows")
	}
	var r Real
	res, err := r.Run(context.Background(), "", "echo", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(res.Stdout) != "hello\n" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
}

func TestRealRunNonZeroExitIsNotError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh -c semantics differ on windows")
	}
	var r Real
	res, err := r.Run(context.Background(), "", "sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("Run returned err for a clean non-zero exit: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestFakeRunMatchesInOrder(t *testing.T) {
	f := NewFake()
	f.Expect(Script{Match: "sops -d", Result: Result{Stdout: []byte("A=1\n")}})
	f.Expect(Script{Match: "sops -e", Result: Result{Stdout: []byte("A=ENC[...]\n")}})

	res, err := f.Run(context.Background(), "/vault", "sops", "-d", "--input-type", "dotenv", "a.env")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(res.Stdout) != "A=1\n" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if len(f.Calls) != 1 || f.Calls[0].Name != "sops" {
		t.Fatalf("calls = %v", f.Calls)
	}
}

func TestFakeRunUnmatchedFails(t *testing.T) {
	f := NewFake()
	_, err := f.Run(context.Background(), "", "sops", "-d", "x")
	if err == nil {
		t.Fatalf("expected error for unscripted call")
	}
}
