package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/chiehwen/wedi-export/internal/scraper/portal"
)

// defaultPause spaces out account runs so the portal never sees two logins
// back to back.
const defaultPause = 2 * time.Second

// RunnerFunc executes one account's export and returns the written file
// paths.
type RunnerFunc func(ctx context.Context, acct Account) ([]string, error)

// RunReport summarizes a whole roster run.
type RunReport struct {
	RunID      string                    `json:"run_id"`
	Category   string                    `json:"category"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Succeeded  int                       `json:"succeeded"`
	Failed     int                       `json:"failed"`
	Skipped    int                       `json:"skipped"`
	Results    []portal.AccountRunResult `json:"results"`
}

// Manager walks the roster sequentially. One account's failure never
// stops the rest; each gets its own result entry.
type Manager struct {
	logger *slog.Logger
	pause  time.Duration
}

type ManagerOption func(*Manager)

// WithPause overrides the delay between account runs. Tests set it to zero.
func WithPause(d time.Duration) ManagerOption {
	return func(m *Manager) { m.pause = d }
}

func NewManager(logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger, pause: defaultPause}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunAll runs every enabled account through run. Context cancellation
// stops before the next account starts; the report covers whatever
// completed.
func (m *Manager) RunAll(ctx context.Context, accts []Account, run RunnerFunc) *RunReport {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	ran := false
	for _, acct := range accts {
		if !acct.IsEnabled() {
			m.logger.Info("account disabled, skipping", "username", acct.Username)
			report.Skipped++
			continue
		}

		if ctx.Err() != nil {
			m.logger.Warn("run interrupted, remaining accounts skipped",
				"username", acct.Username)
			report.Skipped++
			continue
		}

		if ran {
			time.Sleep(m.pause)
		}
		ran = true

		m.logger.Info("account run starting", "username", acct.Username, "run_id", report.RunID)
		paths, err := run(ctx, acct)

		result := portal.AccountRunResult{
			Username:        acct.Username,
			Success:         err == nil,
			DownloadedPaths: paths,
		}
		if err != nil {
			result.Error = err.Error()
			report.Failed++
			m.logger.Error("account run failed", "username", acct.Username, "error", err)
		} else {
			report.Succeeded++
			m.logger.Info("account run finished", "username", acct.Username, "downloads", len(paths))
		}
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = time.Now()
	return report
}

// WriteReport persists the report as reports/{timestamp}.json and returns
// the written path.
func WriteReport(dir string, report *RunReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, report.StartedAt.Format("20060102-150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
