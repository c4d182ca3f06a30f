// Package clip copies text to the user's clipboard, falling back to a
// temp file when no clipboard is reachable. The TUI uses it for agent
// stream links and assembled campaign summaries, so a headless SSH
// session still gets the content somewhere retrievable.
package clip

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that ended up holding the content. MethodFile
// means no clipboard was reachable; the text sits in FilePath instead.
type Method string

const (
	MethodNative Method = "native" // OS clipboard
	MethodOSC52  Method = "osc52"  // terminal escape sequence, survives SSH
	MethodFile   Method = "file"   // temp file fallback
)

type Result struct {
	Method   Method
	FilePath string // set only when Method == MethodFile
}

// Swappable in tests.
var (
	nativeCopy   = func(text string) error { return atotto.WriteAll(text) }
	terminalCopy = copyOSC52
)

// Copy places text on the clipboard, trying the native clipboard, then
// OSC52 through the terminal, then a temp file. An error means even the
// temp file could not be written.
func Copy(text string) (Result, error) {
	if err := nativeCopy(text); err == nil {
		return Result{Method: MethodNative}, nil
	}

	if err := terminalCopy(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := writeTempFile(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// Terminals commonly cap OSC52 payloads; stay under the usual limits.
const osc52LimitBytes = 100_000

func copyOSC52(text string) error {
	if text == "" {
		return errors.New("empty clipboard text")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return errors.New("stderr is not a terminal")
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}

	// Stderr keeps the escape sequence out of the TUI's stdout renderer.
	_, err := seq.WriteTo(os.Stderr)
	return err
}

func writeTempFile(text string) (string, error) {
	f, err := os.CreateTemp("", "adsmith-clip-*.txt")
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}

	return filepath.Clean(path), nil
}
