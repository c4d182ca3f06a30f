package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/adsmith-io/adsmith/internal/clip"
	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/snapshot"
	"github.com/adsmith-io/adsmith/internal/tui"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and move persisted runs",
	Long: `Work with runs persisted by 'adsmith run' and 'adsmith serve'.

List past runs, show a stored campaign, and move runs between machines
through portable archives.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted runs",
	Long: `List all persisted runs with their status and timing.

Use --filter to narrow the list; the filter fuzzy-matches against run
IDs and business inputs.`,
	RunE: runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the campaign from a persisted run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs into a portable archive",
	RunE:  runRunsExport,
}

var runsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import runs from an archive",
	RunE:  runRunsImport,
}

var runsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an archive without importing it",
	RunE:  runRunsValidate,
}

var (
	runsListFilter string
	runsListJSON   bool

	runsShowJSON bool
	runsShowCopy bool

	runsExportOutput string
	runsExportRunIDs []string

	runsImportInput  string
	runsImportPolicy string
	runsImportDryRun bool

	runsValidateInput string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsImportCmd)
	runsCmd.AddCommand(runsValidateCmd)

	runsListCmd.Flags().StringVar(&runsListFilter, "filter", "", "fuzzy filter on run ID and input")
	runsListCmd.Flags().BoolVar(&runsListJSON, "json", false, "output as JSON")

	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "output the full run record as JSON")
	runsShowCmd.Flags().BoolVar(&runsShowCopy, "copy", false, "copy the campaign markdown to the clipboard")

	runsExportCmd.Flags().StringVarP(&runsExportOutput, "output", "o", "", "output archive path (default: ./adsmith-runs-<timestamp>.yaml)")
	runsExportCmd.Flags().StringSliceVar(&runsExportRunIDs, "run", nil, "run IDs to export (repeatable); exports all runs when omitted")

	runsImportCmd.Flags().StringVarP(&runsImportInput, "input", "i", "", "input archive path")
	runsImportCmd.Flags().StringVar(&runsImportPolicy, "conflict-policy", string(snapshot.ConflictSkip), "conflict policy: skip | overwrite | fail")
	runsImportCmd.Flags().BoolVar(&runsImportDryRun, "dry-run", false, "preview import actions without writing")
	_ = runsImportCmd.MarkFlagRequired("input")

	runsValidateCmd.Flags().StringVarP(&runsValidateInput, "input", "i", "", "input archive path")
	_ = runsValidateCmd.MarkFlagRequired("input")
}

func runRunsList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if runsListFilter != "" {
		summaries = filterRuns(summaries, runsListFilter)
	}

	if runsListJSON {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No runs found.")
		fmt.Println("Run 'adsmith run \"<business>\"' to start one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATUS\tSTARTED\tDURATION\tAGENTS\tINPUT")
	fmt.Fprintln(w, "------\t------\t-------\t--------\t------\t-----")

	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.RunID,
			s.Status,
			formatRunTime(s.StartedAt),
			formatRunDuration(s),
			formatAgentCounts(s),
			truncateText(s.Input, 40),
		)
	}

	return w.Flush()
}

// filterRuns keeps the summaries whose ID or input fuzzy-matches the
// query, best matches first.
func filterRuns(summaries []core.RunSummary, query string) []core.RunSummary {
	targets := make([]string, len(summaries))
	for i, s := range summaries {
		targets[i] = s.RunID + " " + s.Input
	}

	matches := fuzzy.Find(query, targets)

	filtered := make([]core.RunSummary, len(matches))
	for i, m := range matches {
		filtered[i] = summaries[m.Index]
	}
	return filtered
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatRunDuration(s core.RunSummary) string {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return "-"
	}
	return s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()
}

func formatAgentCounts(s core.RunSummary) string {
	return fmt.Sprintf("%d/%d", s.AgentCount-s.FailCount, s.AgentCount)
}

func runRunsShow(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	runID := args[0]

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", runID, err)
	}

	if runsShowJSON {
		return outputJSON(res)
	}

	markdown := tui.CampaignMarkdown(res)

	if runsShowCopy {
		result, cerr := clip.Copy(markdown)
		if cerr != nil {
			return fmt.Errorf("copying campaign: %w", cerr)
		}
		if result.Method == clip.MethodFile {
			fmt.Printf("Clipboard unavailable; campaign written to %s\n", result.FilePath)
		} else {
			fmt.Println("Campaign copied to clipboard.")
		}
		return nil
	}

	// Styled output on a terminal, raw markdown when piped.
	detector := tui.NewDetector().NoColor(noColor)
	if detector.Detect() == tui.ModeTUI {
		width, _ := tui.TerminalSize()
		fmt.Println(tui.RenderCampaign(res, width))
		return nil
	}

	fmt.Println(strings.TrimRight(markdown, "\n"))
	return nil
}

func runRunsExport(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	outputPath := strings.TrimSpace(runsExportOutput)
	if outputPath == "" {
		outputPath = fmt.Sprintf("adsmith-runs-%s.yaml", time.Now().UTC().Format("20060102-150405"))
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := snapshot.Export(ctx, st, &snapshot.ExportOptions{
		OutputPath:  outputPath,
		RunIDs:      runsExportRunIDs,
		ToolVersion: GetVersion(),
	})
	if err != nil {
		return err
	}

	if quiet {
		fmt.Println(result.OutputPath)
		return nil
	}

	fmt.Printf("Exported %d run(s) to %s\n", result.RunCount, result.OutputPath)
	for _, id := range result.RunIDs {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

func runRunsImport(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := snapshot.Import(ctx, st, &snapshot.ImportOptions{
		InputPath:      runsImportInput,
		ConflictPolicy: snapshot.ConflictPolicy(runsImportPolicy),
		DryRun:         runsImportDryRun,
	})
	if err != nil {
		return err
	}

	if quiet {
		b, marshalErr := json.Marshal(report)
		if marshalErr != nil {
			return marshalErr
		}
		fmt.Println(string(b))
		return nil
	}

	fmt.Printf("Import complete (policy=%s, dry_run=%t)\n", report.ConflictPolicy, report.DryRun)
	fmt.Printf("Imported: %d\n", report.ImportedRuns)
	fmt.Printf("Skipped: %d\n", report.SkippedRuns)
	for _, r := range report.Runs {
		line := fmt.Sprintf("  %s %s", r.RunID, r.Action)
		if r.Reason != "" {
			line += " (" + r.Reason + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func runRunsValidate(_ *cobra.Command, _ []string) error {
	archive, err := snapshot.Validate(runsValidateInput)
	if err != nil {
		return err
	}

	if quiet {
		fmt.Println("valid")
		return nil
	}

	fmt.Printf("Archive valid: version=%d, %d run(s), exported %s\n",
		archive.Version, archive.RunCount, archive.ExportedAt.Format(time.RFC3339))
	for _, entry := range archive.Runs {
		fmt.Printf("  %s %s %s\n", entry.RunID, entry.Status, truncateText(entry.Input, 40))
	}
	return nil
}
