package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adsmith-io/adsmith/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration",
	Long: `Write a commented .adsmith.yaml into the current directory and create
the local data directory used by the default run store.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing configuration")
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	configPath := filepath.Join(cwd, ".adsmith.yaml")

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	if err := config.AtomicWrite(configPath, []byte(config.DefaultConfigYAML)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(cwd, ".adsmith"), 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Println("Initialized adsmith in", cwd)
	fmt.Println("Configuration file: .adsmith.yaml")
	fmt.Println("Run 'adsmith doctor' to verify setup")
	fmt.Println("Run 'adsmith run --fake \"vegan bakery in Lisbon\"' to try the pipeline")

	return nil
}
