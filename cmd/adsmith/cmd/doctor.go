package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adsmith-io/adsmith/internal/diagnostics"
)

var (
	doctorHardware bool
	doctorJSON     bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and environment",
	Long: `Verify that adsmith can run on this machine.

Checks the configuration, the storage directory, the agent service and
free disk space. --hardware adds a machine inventory.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorHardware, "hardware", false, "include a hardware inventory")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output as JSON")
}

// doctorReport is the JSON shape of a doctor invocation.
type doctorReport struct {
	Checks   []diagnostics.Check   `json:"checks"`
	Hardware *diagnostics.Hardware `json:"hardware,omitempty"`
}

func runDoctor(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// A config that does not even parse is the finding, not a reason to
	// abort silently.
	cfg, _, err := loadConfig()
	if err != nil {
		check := diagnostics.Check{
			Name:   "configuration",
			Status: diagnostics.CheckFail,
			Detail: err.Error(),
		}
		if doctorJSON {
			_ = outputJSON(doctorReport{Checks: []diagnostics.Check{check}})
		} else {
			printCheck(check)
		}
		return fmt.Errorf("environment check failed")
	}

	checks := diagnostics.NewDoctor(cfg).Run(ctx)

	var hw diagnostics.Hardware
	var hwErr error
	if doctorHardware {
		hw, hwErr = diagnostics.ProbeHardware()
	}

	if doctorJSON {
		report := doctorReport{Checks: checks}
		if doctorHardware {
			report.Hardware = &hw
		}
		if err := outputJSON(report); err != nil {
			return err
		}
		if diagnostics.Failed(checks) {
			return fmt.Errorf("environment check failed")
		}
		return nil
	}

	fmt.Println("Checking adsmith environment...")
	fmt.Println()
	for _, c := range checks {
		printCheck(c)
	}
	fmt.Println()

	if doctorHardware {
		printHardware(hw, hwErr)
	}

	if diagnostics.Failed(checks) {
		return fmt.Errorf("environment check failed")
	}

	warned := false
	for _, c := range checks {
		if c.Status == diagnostics.CheckWarn {
			warned = true
		}
	}
	if warned {
		fmt.Println("Checks passed with warnings")
	} else {
		fmt.Println("All checks passed")
	}
	return nil
}

func printCheck(c diagnostics.Check) {
	icon := "✓"
	switch c.Status {
	case diagnostics.CheckWarn:
		icon = "○"
	case diagnostics.CheckFail:
		icon = "✗"
	}

	line := fmt.Sprintf("  %s %s", icon, c.Name)
	if c.Detail != "" {
		line += ": " + c.Detail
	}
	fmt.Println(line)
}

func printHardware(hw diagnostics.Hardware, probeErr error) {
	fmt.Println("Hardware:")
	if probeErr != nil {
		fmt.Printf("  ○ probe incomplete: %v\n", probeErr)
	}
	if hw.CPUModel != "" || hw.CPUCores > 0 {
		fmt.Printf("  CPU: %s (%d cores, %d threads)\n", hw.CPUModel, hw.CPUCores, hw.CPUThreads)
	}
	if hw.MemoryGB > 0 {
		fmt.Printf("  Memory: %.1f GB\n", hw.MemoryGB)
	}
	for _, d := range hw.Disks {
		if d.Model != "" {
			fmt.Printf("  Disk: %s %s (%.1f GB)\n", d.Name, d.Model, d.SizeGB)
		} else {
			fmt.Printf("  Disk: %s (%.1f GB)\n", d.Name, d.SizeGB)
		}
	}
	fmt.Println()
}
