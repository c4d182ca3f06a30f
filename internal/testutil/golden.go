// Package testutil provides shared test helpers: golden-file comparison
// with an -update flag, scrubbers for unstable output such as run IDs
// and durations, and small assertion wrappers.
package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var update = flag.Bool("update", false, "update golden files")

// Golden compares test output against files under a base directory.
// Run the tests with -update to rewrite the files from current output.
type Golden struct {
	t       *testing.T
	baseDir string
}

// NewGolden creates a golden file helper rooted at baseDir, resolved
// relative to the test's working directory (the package directory).
func NewGolden(t *testing.T, baseDir string) *Golden {
	return &Golden{
		t:       t,
		baseDir: baseDir,
	}
}

// Assert compares actual output against the golden file <name>.golden.
// With -update the file is rewritten instead and the test passes.
func (g *Golden) Assert(name string, actual []byte) {
	g.t.Helper()

	goldenPath := filepath.Join(g.baseDir, name+".golden")

	if *update {
		g.updateGolden(goldenPath, actual)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		g.t.Fatalf("reading golden file %s: %v (run with -update to create it)", goldenPath, err)
	}

	if string(actual) != string(expected) {
		g.t.Errorf("output mismatch for %s:\n--- expected ---\n%s\n--- actual ---\n%s",
			name, expected, actual)
	}
}

// AssertString compares string output against the golden file.
func (g *Golden) AssertString(name, actual string) {
	g.t.Helper()
	g.Assert(name, []byte(actual))
}

func (g *Golden) updateGolden(path string, actual []byte) {
	g.t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		g.t.Fatalf("creating golden directory: %v", err)
	}

	if err := os.WriteFile(path, actual, 0644); err != nil {
		g.t.Fatalf("writing golden file: %v", err)
	}

	g.t.Logf("updated golden file: %s", path)
}

// Normalize makes output comparable across platforms: line endings
// become LF, trailing whitespace is stripped per line, and trailing
// newlines are removed. Apply it to both sides of a comparison.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ScrubTimestamps replaces timestamps with a placeholder.
func ScrubTimestamps(s string) string {
	patterns := []string{
		`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[^\s]*`, // RFC3339 with timezone
		`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`,       // space-separated
		`\d{2}:\d{2}:\d{2}`,                         // time only
	}

	result := s
	for _, pattern := range patterns {
		re := regexp.MustCompile(pattern)
		result = re.ReplaceAllString(result, "[TIMESTAMP]")
	}

	return result
}

// ScrubDurations replaces duration strings like "1.2s", "450ms" or
// "1m35s" with a placeholder.
func ScrubDurations(s string) string {
	re := regexp.MustCompile(`\d+(\.\d+)?(ns|us|µs|ms|s|m|h)+`)
	return re.ReplaceAllString(s, "[DURATION]")
}

// ScrubRunIDs replaces generated run identifiers with a placeholder.
// Fixed IDs used by test fixtures ("run-1", "run-camp") pass through.
func ScrubRunIDs(s string) string {
	re := regexp.MustCompile(`run-\d{8}-\d{6}-[0-9a-f]{8}`)
	return re.ReplaceAllString(s, "[RUN_ID]")
}

// ScrubPaths replaces basePath, typically a temp directory, with a
// stable placeholder.
func ScrubPaths(s, basePath string) string {
	return strings.ReplaceAll(s, basePath, "[WORKDIR]")
}

// ScrubChecksums replaces sha-256 hex digests, as written by the run
// store and snapshot envelopes, with a placeholder.
func ScrubChecksums(s string) string {
	re := regexp.MustCompile(`[0-9a-f]{64}`)
	return re.ReplaceAllString(s, "[CHECKSUM]")
}

// ScrubAll applies every scrubber and then Normalize.
func ScrubAll(s, basePath string) string {
	result := s
	result = ScrubTimestamps(result)
	result = ScrubDurations(result)
	result = ScrubPaths(result, basePath)
	result = ScrubRunIDs(result)
	result = ScrubChecksums(result)
	return Normalize(result)
}
