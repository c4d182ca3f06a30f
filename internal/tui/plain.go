package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/events"
)

// PlainRenderer writes run progress as plain lines for pipes, CI and
// dumb terminals. It consumes the same bus events as the TUI.
type PlainRenderer struct {
	writer   io.Writer
	useColor bool
	verbose  bool
	mu       sync.Mutex
}

// NewPlainRenderer creates a plain line renderer writing to stdout.
func NewPlainRenderer(useColor, verbose bool) *PlainRenderer {
	return &PlainRenderer{
		writer:   os.Stdout,
		useColor: useColor,
		verbose:  verbose,
	}
}

// WithWriter sets a custom writer.
func (p *PlainRenderer) WithWriter(w io.Writer) *PlainRenderer {
	p.writer = w
	return p
}

// Run consumes events until the channel closes or ctx is done.
func (p *PlainRenderer) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.HandleEvent(ev)
		}
	}
}

// HandleEvent renders a single bus event as one or two lines.
func (p *PlainRenderer) HandleEvent(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := event.(type) {
	case events.RunStartedEvent:
		p.printHeader(fmt.Sprintf("Campaign run %s", e.RunID()))
		input := e.Input
		if len(input) > 100 {
			input = input[:100] + "..."
		}
		p.printf("  Input: %s\n", input)

	case events.PhaseStartedEvent:
		p.printSection(fmt.Sprintf("Phase %d/%d: %s", e.Phase, len(core.Pipeline()), strings.ToUpper(e.Name)))

	case events.PhaseCompletedEvent:
		p.printf("  %d done, %d failed (%s)\n", e.Done, e.Failed, e.Duration.Round(time.Millisecond))

	case events.AgentStartedEvent:
		p.printf("%s [WORKING] %s\n", p.statusIcon("working"), agentDisplayName(e.Agent))

	case events.AgentProgressEvent:
		msg := e.Message
		if len(msg) > 120 {
			msg = msg[:120] + "..."
		}
		p.printf("    %s: %s\n", agentDisplayName(e.Agent), msg)

	case events.AgentStreamLinkEvent:
		p.printf("    %s stream: %s\n", agentDisplayName(e.Agent), e.URL)

	case events.AgentCompletedEvent:
		p.printf("%s [DONE] %s (%s)\n", p.statusIcon("done"),
			agentDisplayName(e.Agent), e.Duration.Round(time.Millisecond))

	case events.AgentFailedEvent:
		p.printf("%s [FAILED] %s: %s (%s)\n", p.statusIcon("error"),
			agentDisplayName(e.Agent), e.Error, e.Category)

	case events.RunCompletedEvent:
		p.printSection("Run Completed")
		p.printf("  Duration: %s\n", e.Duration.Round(time.Second))
		if len(e.FailedAgents) > 0 {
			p.printf("  %s Failed agents: %s\n", p.warnIcon(), strings.Join(e.FailedAgents, ", "))
		}

	case events.RunCancelledEvent:
		p.printError(fmt.Sprintf("Run cancelled during phase %d", e.Phase))

	case events.RunPersistedEvent:
		p.printf("  Saved as %s\n", e.PersistedID)

	case events.RunPersistFailedEvent:
		p.printf("  %s Run not saved: %s\n", p.warnIcon(), e.Error)

	case events.ConfigReloadedEvent:
		if e.Warning != "" {
			p.printf("  %s Config reload: %s\n", p.warnIcon(), e.Warning)
		} else if p.verbose {
			p.printf("  Config reloaded\n")
		}
	}
}

// Log outputs a log message in the same stream as the event lines.
func (p *PlainRenderer) Log(level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.verbose && level == "debug" {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	p.printf("[%s] %s %s\n", timestamp, p.formatLevel(level), message)
}

// Helper methods

func (p *PlainRenderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.writer, format, args...)
}

func (p *PlainRenderer) printHeader(text string) {
	line := strings.Repeat("=", 60)
	if p.useColor {
		p.printf("\n%s\n%s %s\n%s\n",
			p.colorize(line, "cyan"),
			p.colorize(">>>", "cyan"),
			text,
			p.colorize(line, "cyan"))
	} else {
		p.printf("\n%s\n>>> %s\n%s\n", line, text, line)
	}
}

func (p *PlainRenderer) printSection(text string) {
	if p.useColor {
		p.printf("\n%s %s\n", p.colorize("---", "blue"), text)
	} else {
		p.printf("\n--- %s\n", text)
	}
}

func (p *PlainRenderer) printError(text string) {
	if p.useColor {
		p.printf("\n%s %s\n", p.colorize("!!!", "red"), p.colorize(text, "red"))
	} else {
		p.printf("\n!!! %s\n", text)
	}
}

func (p *PlainRenderer) statusIcon(state string) string {
	icons := map[string]string{
		"idle":    "○",
		"working": "●",
		"done":    "✓",
		"error":   "✗",
	}

	icon := icons[state]
	if !p.useColor {
		return icon
	}

	colors := map[string]string{
		"idle":    "gray",
		"working": "cyan",
		"done":    "green",
		"error":   "red",
	}

	return p.colorize(icon, colors[state])
}

func (p *PlainRenderer) warnIcon() string {
	icon := "⚠"
	if p.useColor {
		return p.colorize(icon, "yellow")
	}
	return icon
}

func (p *PlainRenderer) formatLevel(level string) string {
	upper := strings.ToUpper(level)
	if !p.useColor {
		return fmt.Sprintf("[%5s]", upper)
	}

	colors := map[string]string{
		"debug": "gray",
		"info":  "blue",
		"warn":  "yellow",
		"error": "red",
	}

	return p.colorize(fmt.Sprintf("[%5s]", upper), colors[level])
}

func (p *PlainRenderer) colorize(text, color string) string {
	codes := map[string]string{
		"red":    "\033[31m",
		"green":  "\033[32m",
		"yellow": "\033[33m",
		"blue":   "\033[34m",
		"cyan":   "\033[36m",
		"gray":   "\033[90m",
		"reset":  "\033[0m",
	}

	code, ok := codes[color]
	if !ok {
		return text
	}

	return code + text + codes["reset"]
}

// agentDisplayName resolves an agent ID to its table name, falling
// back to the raw ID for agents not in the pipeline.
func agentDisplayName(agentID string) string {
	if def, ok := core.AgentByID(agentID); ok {
		return def.Name
	}
	return agentID
}
