package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/adsmith-io/adsmith/internal/config"
)

// CheckStatus classifies the outcome of one doctor check.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// Check is the result of one doctor check.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// lowDiskGB is the free-space floor below which doctor warns.
const lowDiskGB = 1.0

// Doctor runs configuration and environment checks.
type Doctor struct {
	cfg    *config.Config
	client *http.Client
}

// NewDoctor creates a doctor for the given configuration.
func NewDoctor(cfg *config.Config) *Doctor {
	return &Doctor{
		cfg: cfg,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

// Run executes every check and returns their results in a fixed order.
// A failing check never stops the remaining ones.
func (d *Doctor) Run(ctx context.Context) []Check {
	return []Check{
		d.checkConfig(),
		d.checkStorageDir(),
		d.checkAgentService(ctx),
		d.checkDiskSpace(),
	}
}

// Failed reports whether any check failed outright.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == CheckFail {
			return true
		}
	}
	return false
}

func (d *Doctor) checkConfig() Check {
	check := Check{Name: "configuration"}

	if d.cfg == nil {
		check.Status = CheckFail
		check.Detail = "no configuration loaded"
		return check
	}

	if err := config.ValidateConfig(d.cfg); err != nil {
		check.Status = CheckFail
		if verrs, ok := err.(config.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, verr := range verrs {
				msgs = append(msgs, verr.Error())
			}
			check.Detail = strings.Join(msgs, "; ")
		} else {
			check.Detail = err.Error()
		}
		return check
	}

	check.Status = CheckOK
	return check
}

func (d *Doctor) checkStorageDir() Check {
	check := Check{Name: "storage directory"}

	if d.cfg == nil || d.cfg.Storage.Path == "" {
		check.Status = CheckFail
		check.Detail = "no storage path configured"
		return check
	}

	dir := filepath.Dir(d.cfg.Storage.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		check.Status = CheckFail
		check.Detail = fmt.Sprintf("cannot create %s: %v", dir, err)
		return check
	}

	probe, err := os.CreateTemp(dir, ".adsmith-doctor-*")
	if err != nil {
		check.Status = CheckFail
		check.Detail = fmt.Sprintf("%s is not writable: %v", dir, err)
		return check
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	check.Status = CheckOK
	check.Detail = dir
	return check
}

func (d *Doctor) checkAgentService(ctx context.Context) Check {
	check := Check{Name: "agent service"}

	if d.cfg == nil {
		check.Status = CheckFail
		check.Detail = "no configuration loaded"
		return check
	}

	if d.cfg.Agents.Mode == config.AgentModeFake {
		check.Status = CheckOK
		check.Detail = "fake mode, no upstream needed"
		return check
	}

	base := strings.TrimRight(d.cfg.Agents.BaseURL, "/")
	if base == "" {
		check.Status = CheckFail
		check.Detail = "agents.base_url is not set"
		return check
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		check.Status = CheckFail
		check.Detail = err.Error()
		return check
	}

	// Any HTTP response proves the service is listening; the task
	// endpoints are not probed to avoid side effects.
	resp, err := d.client.Do(req)
	if err != nil {
		check.Status = CheckFail
		check.Detail = fmt.Sprintf("%s unreachable: %v", base, err)
		return check
	}
	_ = resp.Body.Close()

	check.Status = CheckOK
	check.Detail = fmt.Sprintf("%s responded with %d", base, resp.StatusCode)
	return check
}

func (d *Doctor) checkDiskSpace() Check {
	check := Check{Name: "disk space"}

	path := rootDiskPath()
	if d.cfg != nil && d.cfg.Storage.Path != "" {
		path = existingDir(d.cfg.Storage.Path)
	}

	usage, err := disk.Usage(path)
	if err != nil {
		check.Status = CheckWarn
		check.Detail = fmt.Sprintf("cannot stat %s: %v", path, err)
		return check
	}

	freeGB := float64(usage.Free) / 1024 / 1024 / 1024
	if freeGB < lowDiskGB {
		check.Status = CheckWarn
		check.Detail = fmt.Sprintf("only %.1f GB free on %s", freeGB, path)
		return check
	}

	check.Status = CheckOK
	check.Detail = fmt.Sprintf("%.1f GB free on %s", freeGB, path)
	return check
}
