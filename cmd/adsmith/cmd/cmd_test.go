package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestGetInput_FromArgs(t *testing.T) {
	input, err := getInput([]string{"vegan bakery in Lisbon"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "vegan bakery in Lisbon" {
		t.Errorf("expected 'vegan bakery in Lisbon', got '%s'", input)
	}
}

func TestGetInput_TrimsArg(t *testing.T) {
	input, err := getInput([]string{"  coffee cart \n"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "coffee cart" {
		t.Errorf("expected 'coffee cart', got '%s'", input)
	}
}

func TestGetInput_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "brief.txt")
	if err := os.WriteFile(inputFile, []byte("surf school in Ericeira\n"), 0o600); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	input, err := getInput([]string{}, inputFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "surf school in Ericeira" {
		t.Errorf("expected 'surf school in Ericeira', got '%s'", input)
	}
}

func TestGetInput_FilePrecedesArg(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "brief.txt")
	if err := os.WriteFile(inputFile, []byte("from file"), 0o600); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	input, err := getInput([]string{"from arg"}, inputFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "from file" {
		t.Errorf("expected file content to win, got '%s'", input)
	}
}

func TestGetInput_FileNotFound(t *testing.T) {
	if _, err := getInput([]string{}, "/nonexistent/brief.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestGetInput_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "empty.txt")
	if err := os.WriteFile(inputFile, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	if _, err := getInput([]string{}, inputFile); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestGetInput_NoInput(t *testing.T) {
	if _, err := getInput([]string{}, ""); err == nil {
		t.Error("expected error when no input provided")
	}
}

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "adsmith" {
		t.Errorf("expected 'adsmith', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty short description")
	}
}

func TestCommandRegistration(t *testing.T) {
	expected := []string{
		"run [input]",
		"serve",
		"runs",
		"doctor",
		"init",
		"version",
	}

	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Use] = true
	}

	for _, use := range expected {
		if !registered[use] {
			t.Errorf("command %q not registered", use)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	for _, flag := range []string{"file", "fake", "output"} {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run command missing --%s flag", flag)
		}
	}
}

func TestServeCmd_Flags(t *testing.T) {
	for _, flag := range []string{"host", "port", "no-cors", "fake"} {
		if serveCmd.Flags().Lookup(flag) == nil {
			t.Errorf("serve command missing --%s flag", flag)
		}
	}
}

func TestDoctorCmd_Flags(t *testing.T) {
	for _, flag := range []string{"hardware", "json"} {
		if doctorCmd.Flags().Lookup(flag) == nil {
			t.Errorf("doctor command missing --%s flag", flag)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, flag := range []string{"config", "log-level", "json-logs", "no-color", "quiet"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent --%s flag", flag)
		}
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")
	if appVersion != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", appVersion)
	}
	if appCommit != "abc123" {
		t.Errorf("expected commit 'abc123', got '%s'", appCommit)
	}
	if appDate != "2024-01-01" {
		t.Errorf("expected date '2024-01-01', got '%s'", appDate)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
	}

	for in, want := range cases {
		if got := slogLevel(in); got != want {
			t.Errorf("slogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncateText_Short(t *testing.T) {
	if got := truncateText("short", 40); got != "short" {
		t.Errorf("expected unchanged string, got '%s'", got)
	}
}

func TestTruncateText_Long(t *testing.T) {
	got := truncateText("a very long business description that keeps going", 20)
	if len(got) != 20 {
		t.Errorf("expected length 20, got %d (%q)", len(got), got)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
}

func TestTruncateText_Newlines(t *testing.T) {
	got := truncateText("line one\r\nline two", 40)
	if got != "line one line two" {
		t.Errorf("expected newlines flattened, got %q", got)
	}
}
