package hooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		env      map[string]string
		want     string
		wantCode int
	}{
		{"stdout", "echo hello", nil, "hello", 0},
		{"env overlay", `echo "$GEOTIFY_TEST_VALUE"`, map[string]string{"GEOTIFY_TEST_VALUE": "42"}, "42", 0},
		{"stderr captured", "echo oops >&2; exit 3", nil, "oops", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Execute(context.Background(), tt.command, time.Second, tt.env)
			if (res.Err != nil) != (tt.wantCode != 0) {
				t.Fatalf("err = %v", res.Err)
			}
			if res.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.wantCode)
			}
			if res.Output != tt.want {
				t.Errorf("Output = %q, want %q", res.Output, tt.want)
			}
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	start := time.Now()
	res := Execute(context.Background(), "sleep 5", 100*time.Millisecond, nil)
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", res.Err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout not enforced, took %s", time.Since(start))
	}
}

func TestExecute_TruncatesOutput(t *testing.T) {
	res := Execute(context.Background(), "yes geotify | head -c 10000", time.Second, nil)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !strings.HasSuffix(res.Output, "[truncated]") || len(res.Output) > maxOutput+len(" [truncated]") {
		t.Errorf("output not capped: %d bytes", len(res.Output))
	}
}

func TestClampTimeout(t *testing.T) {
	for in, want := range map[time.Duration]time.Duration{
		0:                DefaultTimeout,
		-time.Second:     DefaultTimeout,
		time.Second:      time.Second,
		MaxTimeout + 1:   MaxTimeout,
		10 * time.Minute: MaxTimeout,
	} {
		if got := clampTimeout(in); got != want {
			t.Errorf("clampTimeout(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestReportEnv(t *testing.T) {
	env := ReportEnv(coordinator.Report{
		Kind:       coordinator.ReportMonitoringUnsupported,
		Identifier: "geo-1",
		Err:        coordinator.ErrMonitoringUnsupported,
	})
	if env["GEOTIFY_REPORT_KIND"] != "monitoring_unsupported" || env["GEOTIFY_REPORT_IDENTIFIER"] != "geo-1" {
		t.Errorf("env = %v", env)
	}
	if env["GEOTIFY_REPORT_ERROR"] != coordinator.ErrMonitoringUnsupported.Error() {
		t.Errorf("error = %q", env["GEOTIFY_REPORT_ERROR"])
	}

	deferred := ReportEnv(coordinator.Report{Kind: coordinator.ReportMonitoringDeferred})
	if _, ok := deferred["GEOTIFY_REPORT_ERROR"]; ok {
		t.Error("error variable set for report without error")
	}
	if deferred["GEOTIFY_REPORT_TITLE"] != "Warning" {
		t.Errorf("title = %q", deferred["GEOTIFY_REPORT_TITLE"])
	}
}

func TestAlertHook_RunsCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "alert.txt")
	h := NewAlertHook(`printf '%s %s' "$GEOTIFY_REPORT_KIND" "$GEOTIFY_REPORT_IDENTIFIER" > `+out, time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	h.Report(coordinator.Report{Kind: coordinator.ReportMonitoringFailed, Identifier: "geo-3"})
	h.Wait()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != "monitoring_failed geo-3" {
		t.Errorf("alert output = %q", got)
	}
}
