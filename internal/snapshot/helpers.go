package snapshot

import (
	"fmt"
	"os"
	"strings"
)

func normalizeExportOptions(opts *ExportOptions) error {
	if opts == nil {
		return fmt.Errorf("options are required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

func normalizeImportOptions(opts *ImportOptions) error {
	if opts == nil {
		return fmt.Errorf("options are required")
	}
	if strings.TrimSpace(opts.InputPath) == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = ConflictSkip
	}
	switch opts.ConflictPolicy {
	case ConflictSkip, ConflictOverwrite, ConflictFail:
	default:
		return fmt.Errorf("invalid conflict policy: %s", opts.ConflictPolicy)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
