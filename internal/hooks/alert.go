package hooks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
)

// AlertHook is a coordinator.Reporter that runs a shell command for every
// monitoring report. Report details are passed as GEOTIFY_REPORT_*
// environment variables.
type AlertHook struct {
	command string
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

var _ coordinator.Reporter = (*AlertHook)(nil)

func NewAlertHook(command string, timeout time.Duration, logger *slog.Logger) *AlertHook {
	return &AlertHook{command: command, timeout: timeout, logger: logger}
}

// Report starts the command in the background and returns immediately.
func (h *AlertHook) Report(r coordinator.Report) {
	env := ReportEnv(r)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		result := Execute(context.Background(), h.command, h.timeout, env)
		if result.Err != nil {
			h.logger.Warn("hooks: alert command failed",
				"kind", r.Kind, "identifier", r.Identifier, "exit_code", result.ExitCode,
				"err", result.Err, "output", result.Output)
			return
		}
		h.logger.Debug("hooks: alert command ran", "kind", r.Kind, "identifier", r.Identifier)
	}()
}

// Wait blocks until every started command has finished.
func (h *AlertHook) Wait() {
	h.wg.Wait()
}

// ReportEnv returns the environment describing r.
func ReportEnv(r coordinator.Report) map[string]string {
	env := map[string]string{
		"GEOTIFY_REPORT_KIND":       string(r.Kind),
		"GEOTIFY_REPORT_IDENTIFIER": r.Identifier,
		"GEOTIFY_REPORT_TITLE":      r.Title(),
		"GEOTIFY_REPORT_MESSAGE":    r.Message(),
	}
	if r.Err != nil {
		env["GEOTIFY_REPORT_ERROR"] = r.Err.Error()
	}
	return env
}
