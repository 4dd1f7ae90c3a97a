package detector_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scummsync/internal/detector"
	"scummsync/internal/library"
	"scummsync/internal/services"
)

type stubExecutor struct {
	lines  []string
	err    error
	calls  int
	args   [][]string
	onCall func()
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	if s.onCall != nil {
		s.onCall()
	}
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

var detectOutput = []string{
	"WARNING: Unknown engine flag",
	"GameID                         Description                          Full Path",
	"------------------------------ ------------------------------------ ---------",
	"scumm:monkey                   The Secret of Monkey Island (CD/DOS) /lib/monkey",
	"scumm:monkey-vga               The Secret of Monkey Island (VGA)    /lib/monkey",
}

func newClient(t *testing.T, exec detector.Executor, storePath string) *detector.Client {
	t.Helper()
	client, err := detector.New("scummvm", []string{"--config=/tmp/scummvm.ini"}, storePath,
		library.New("/lib", ".svm"), time.Second, detector.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestDetectReturnsFirstCandidate(t *testing.T) {
	exec := &stubExecutor{lines: detectOutput}
	client := newClient(t, exec, "")

	id, err := client.Detect(context.Background(), "/lib/monkey")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if id != "monkey" {
		t.Fatalf("expected monkey, got %q", id)
	}
	want := "--config=/tmp/scummvm.ini --detect --path=/lib/monkey"
	if got := strings.Join(exec.args[0], " "); got != want {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestDetectNoMatch(t *testing.T) {
	exec := &stubExecutor{lines: detectOutput[:3]}
	client := newClient(t, exec, "")

	_, err := client.Detect(context.Background(), "/lib/empty")
	if !errors.Is(err, detector.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestDetectToolFailure(t *testing.T) {
	exec := &stubExecutor{err: errors.New("exit status 1")}
	client := newClient(t, exec, "")

	_, err := client.Detect(context.Background(), "/lib/monkey")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestDetectRequiresPath(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec, "")
	if _, err := client.Detect(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("engine must not run without a path")
	}
}

func TestAddReadsLabelFromStore(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "scummvm.ini")
	initial := "[scummvm]\n\n[monkey]\npath=/lib/other\ngameid=monkey\n"
	if err := os.WriteFile(storePath, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := &stubExecutor{onCall: func() {
		added := initial + "\n[monkey-1]\npath=/lib/monkey/\ngameid=monkey\n"
		_ = os.WriteFile(storePath, []byte(added), 0o644)
	}}
	client := newClient(t, exec, storePath)

	label, err := client.Add(context.Background(), "/lib/monkey")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if label != "monkey-1" {
		t.Fatalf("expected monkey-1, got %q", label)
	}
	if got := exec.args[0][1]; got != "--add" {
		t.Fatalf("expected --add, got %q", got)
	}
}

func TestAddWithoutNewSection(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "scummvm.ini")
	if err := os.WriteFile(storePath, []byte("[scummvm]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := newClient(t, &stubExecutor{}, storePath)

	_, err := client.Add(context.Background(), "/lib/monkey")
	if !errors.Is(err, detector.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := detector.New(" ", nil, "", library.New("/lib", ""), 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
