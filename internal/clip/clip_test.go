package clip

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func stubCopiers(t *testing.T, native, terminal func(string) error) {
	t.Helper()
	origNative := nativeCopy
	origTerminal := terminalCopy
	t.Cleanup(func() {
		nativeCopy = origNative
		terminalCopy = origTerminal
	})
	nativeCopy = native
	terminalCopy = terminal
}

func TestCopy_NativeFirst(t *testing.T) {
	stubCopiers(t,
		func(string) error { return nil },
		func(string) error {
			t.Fatal("osc52 must not run when the native clipboard works")
			return nil
		},
	)

	got, err := Copy("https://watch/1")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got.Method != MethodNative {
		t.Fatalf("method = %q, want %q", got.Method, MethodNative)
	}
	if got.FilePath != "" {
		t.Fatalf("file path = %q, want empty", got.FilePath)
	}
}

func TestCopy_OSC52Fallback(t *testing.T) {
	stubCopiers(t,
		func(string) error { return errors.New("no display") },
		func(string) error { return nil },
	)

	got, err := Copy("https://watch/1")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got.Method != MethodOSC52 {
		t.Fatalf("method = %q, want %q", got.Method, MethodOSC52)
	}
}

func TestCopy_TempFileFallback(t *testing.T) {
	stubCopiers(t,
		func(string) error { return errors.New("no display") },
		func(string) error { return errors.New("not a terminal") },
	)

	got, err := Copy("campaign summary text")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got.Method != MethodFile {
		t.Fatalf("method = %q, want %q", got.Method, MethodFile)
	}
	if got.FilePath == "" {
		t.Fatal("file path is empty")
	}
	t.Cleanup(func() { _ = os.Remove(got.FilePath) })

	b, err := os.ReadFile(got.FilePath)
	if err != nil {
		t.Fatalf("reading fallback file: %v", err)
	}
	if string(b) != "campaign summary text" {
		t.Fatalf("file contents = %q", string(b))
	}
}

func TestCopyOSC52_RejectsEmptyAndOversized(t *testing.T) {
	if err := copyOSC52(""); err == nil {
		t.Error("empty text must be rejected")
	}

	big := strings.Repeat("x", osc52LimitBytes+1)
	err := copyOSC52(big)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("oversized text error = %v, want size error", err)
	}
}
