package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chatterbox-studio/internal/domain"
	"chatterbox-studio/internal/engine"
)

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func() error { return nil },
		func() string { return engine.DeviceCUDA },
	)

	report := checker.Run(domain.Settings{
		ModelCLIPath: "chatterbox",
		OutputDir:    filepath.Join(root, "output"),
	})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	if report.Device != engine.DeviceCUDA {
		t.Fatalf("device: got %s, want cuda", report.Device)
	}
	for _, item := range report.Items {
		if item.Status != domain.DiagnosticStatusPass {
			t.Fatalf("item %s: got %s, want pass", item.ID, item.Status)
		}
	}
}

// TestCheckerRunMissingCLIAndOutputDir validates failure reporting.
func TestCheckerRunMissingCLIAndOutputDir(t *testing.T) {
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func() error { return nil },
		func() string { return engine.DeviceCUDA },
	)

	report := checker.Run(domain.Settings{
		ModelCLIPath: "chatterbox",
		OutputDir:    "",
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	assertStatusByID(t, report, "model_cli", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
}

// TestCheckerRunCPUFallbackWarns validates the compute device check.
func TestCheckerRunCPUFallbackWarns(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func() error { return nil },
		func() string { return engine.DeviceCPU },
	)

	report := checker.Run(domain.Settings{
		ModelCLIPath: "chatterbox",
		OutputDir:    filepath.Join(root, "output"),
	})

	if report.HasFailures {
		t.Fatalf("warning must not count as failure: %+v", report.Items)
	}
	assertStatusByID(t, report, "compute_device", domain.DiagnosticStatusWarn)
}

// TestCheckerRunNoMicrophoneWarns validates the microphone probe result.
func TestCheckerRunNoMicrophoneWarns(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func() error { return errors.New("no default input device") },
		func() string { return engine.DeviceMPS },
	)

	report := checker.Run(domain.Settings{
		ModelCLIPath: "chatterbox",
		OutputDir:    filepath.Join(root, "output"),
	})

	if report.HasFailures {
		t.Fatalf("missing microphone must not count as failure: %+v", report.Items)
	}
	assertStatusByID(t, report, "microphone", domain.DiagnosticStatusWarn)
}

// TestCheckerRunUnwritableOutputDir validates write-access probing.
func TestCheckerRunUnwritableOutputDir(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		func(string, os.FileMode) error { return nil },
		func(string, string) (*os.File, error) { return nil, errors.New("permission denied") },
		os.Remove,
		func() error { return nil },
		func() string { return engine.DeviceCUDA },
	)

	report := checker.Run(domain.Settings{
		ModelCLIPath: "chatterbox",
		OutputDir:    "/readonly/output",
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
