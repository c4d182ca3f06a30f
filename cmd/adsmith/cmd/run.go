package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/adsmith-io/adsmith/internal/config"
	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/logging"
	"github.com/adsmith-io/adsmith/internal/pipeline"
	"github.com/adsmith-io/adsmith/internal/tui"
)

var (
	runFile   string
	runFake   bool
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Run the campaign pipeline for a business",
	Long: `Run the full agent pipeline against a business description or website URL.

The pipeline researches the business, drafts ad copy and assembles a
campaign: audience, budget, creative direction and final ads. Progress
is shown in an interactive view on a terminal and as plain lines when
piped; the finished campaign is printed when the run ends.`,
	Example: `  adsmith run "vegan bakery in Lisbon"
  adsmith run https://verdecrumb.example
  adsmith run --file brief.txt --output plain
  adsmith run "coffee cart" --fake`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "read the business input from a file")
	runCmd.Flags().BoolVar(&runFake, "fake", false, "use the built-in scripted agents instead of the agent service")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output mode: tui, plain or quiet")
}

// runOutcome carries the completion callback payload back to the
// command goroutine.
type runOutcome struct {
	result     core.RunResult
	persistErr error
}

func runPipeline(_ *cobra.Command, args []string) error {
	input, err := getInput(args, runFile)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	detector := tui.NewDetector().NoColor(noColor)
	if runOutput != "" {
		detector.ForceMode(tui.ParseOutputMode(runOutput))
	}
	if quiet {
		detector.ForceMode(tui.ModeQuiet)
	}
	mode := detector.Detect()

	bus := events.New(256)
	defer bus.Close()

	// In TUI mode log records become view messages; stderr lines would
	// tear the alternate screen.
	var (
		logger     *logging.Logger
		logHandler *tui.LogHandler
	)
	if mode == tui.ModeTUI {
		logHandler = tui.NewLogHandler(slogLevel(cfg.Log.Level))
		logger = logging.NewWithHandler(logHandler)
	} else {
		logger = buildLogger(cfg)
	}

	unary, streaming := buildTaskClients(cfg, logger, runFake)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := pipeline.New(unary, streaming, st, bus, logger, orchestratorConfig(cfg))
	if err != nil {
		return err
	}

	outcomes := make(chan runOutcome, 1)
	orch.OnRunComplete(func(_ string, res core.RunResult, persistErr error) {
		outcomes <- runOutcome{result: res, persistErr: persistErr}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID, err := orch.StartRun(ctx, input)
	if err != nil {
		return err
	}

	var rendererDone <-chan struct{}
	switch mode {
	case tui.ModeTUI:
		if err := runWithTUI(bus, logHandler, orch, runID, input); err != nil {
			return err
		}
	case tui.ModePlain:
		rendererDone = startPlainRenderer(ctx, bus, detector, cfg.Log.Level == "debug")
	}

	out := awaitOutcome(ctx, orch, runID, outcomes)

	// Closing the bus ends the plain renderer once it has drained the
	// final completion events.
	bus.Close()
	if rendererDone != nil {
		<-rendererDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("orchestrator shutdown", "error", err)
	}

	return reportRun(out, mode)
}

// getInput resolves the business input from --file or the positional
// argument.
func getInput(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading input file: %w", err)
		}
		input := strings.TrimSpace(string(data))
		if input == "" {
			return "", fmt.Errorf("input file %s is empty", file)
		}
		return input, nil
	}

	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}

	return "", fmt.Errorf("business input required: pass a description or URL, or use --file")
}

// runWithTUI drives the Bubbletea dashboard until the user quits or
// the run finishes. Cancellation from the view goes through the
// orchestrator so the run still persists as cancelled.
func runWithTUI(bus *events.Bus, handler *tui.LogHandler, orch *pipeline.Orchestrator, runID, input string) error {
	model := tui.NewWithBus(runID, input, bus).WithCancel(func() {
		_ = orch.Cancel(runID)
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	handler.SetSink(program.Send)
	defer handler.SetSink(nil)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

// startPlainRenderer streams run events as plain lines until the bus
// closes. The returned channel closes when the renderer stops.
func startPlainRenderer(ctx context.Context, bus *events.Bus, detector *tui.Detector, verbose bool) <-chan struct{} {
	renderer := tui.NewPlainRenderer(detector.ShouldUseColor(), verbose)
	ch := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		renderer.Run(ctx, ch)
	}()
	return done
}

// awaitOutcome waits for the run to finish. An interrupt requests a
// graceful cancel; the completion callback still fires with the
// cancelled result, so the second receive cannot block forever.
func awaitOutcome(ctx context.Context, orch *pipeline.Orchestrator, runID string, outcomes <-chan runOutcome) runOutcome {
	select {
	case out := <-outcomes:
		return out
	case <-ctx.Done():
		_ = orch.Cancel(runID)
		return <-outcomes
	}
}

// reportRun prints the finished campaign and surfaces persistence
// trouble. Quiet mode prints a single status line for scripts.
func reportRun(out runOutcome, mode tui.OutputMode) error {
	res := out.result

	if out.persistErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: run finished but could not be saved: %v\n", out.persistErr)
	}

	switch mode {
	case tui.ModeQuiet:
		fmt.Printf("%s %s\n", res.RunID, res.Status)
	case tui.ModePlain:
		fmt.Println()
		fmt.Println(strings.TrimRight(tui.CampaignMarkdown(&res), "\n"))
	default:
		width, _ := tui.TerminalSize()
		fmt.Println(tui.RenderCampaign(&res, width))
	}

	if res.Status == core.RunStatusCancelled {
		return fmt.Errorf("run %s cancelled", res.RunID)
	}
	return nil
}
