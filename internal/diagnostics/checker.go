package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"chatterbox-studio/internal/domain"
	"chatterbox-studio/internal/engine"
)

// Checker validates the model CLI, filesystem paths and audio hardware.
type Checker struct {
	lookPath     func(string) (string, error)
	mkdirAll     func(string, os.FileMode) error
	createTemp   func(string, string) (*os.File, error)
	remove       func(string) error
	probeInput   func() error
	detectDevice func() string
}

// NewChecker builds a checker using real OS and hardware dependencies.
// probeInput should attempt to open the default capture device and report
// the resulting error; pass nil to skip the microphone check.
func NewChecker(probeInput func() error) *Checker {
	return &Checker{
		lookPath:     exec.LookPath,
		mkdirAll:     os.MkdirAll,
		createTemp:   os.CreateTemp,
		remove:       os.Remove,
		probeInput:   probeInput,
		detectDevice: engine.DetectDevice,
	}
}

// Run executes all environment checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	device := c.detectDevice()
	items := []domain.DiagnosticItem{
		c.checkModelCLI(settings.ModelCLIPath),
		c.checkOutputDir(settings.OutputDir),
		c.checkComputeDevice(device),
		c.checkMicrophone(),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		Device:      device,
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkModelCLI verifies the configured model executable can be resolved.
func (c *Checker) checkModelCLI(binPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_cli",
		Name: "Chatterbox CLI",
	}

	if strings.TrimSpace(binPath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model CLI path is empty."
		item.Hint = "Set the chatterbox executable path in settings."
		return item
	}

	path, err := c.lookPath(binPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Executable not found: %s", binPath)
		item.Hint = "Install chatterbox and ensure the binary is on PATH, or point settings at its full path."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where generated audio can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for generated audio."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// checkComputeDevice reports the device inference will run on. CPU is a
// warning, not a failure: generation works, just slowly.
func (c *Checker) checkComputeDevice(device string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "compute_device",
		Name: "Compute device",
	}

	if device == engine.DeviceCPU {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "No GPU detected, inference will run on CPU."
		item.Hint = "Generation is significantly faster with a CUDA GPU or Apple Silicon."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using %s acceleration", device)
	return item
}

// checkMicrophone probes the default capture device. Recording is optional
// so a missing microphone only warns.
func (c *Checker) checkMicrophone() domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "microphone",
		Name: "Microphone",
	}

	if c.probeInput == nil {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "Microphone check skipped."
		return item
	}

	if err := c.probeInput(); err != nil {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("No usable input device: %v", err)
		item.Hint = "Reference voices can still be loaded from audio files."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Default input device is available."
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
	probeInput func() error,
	detectDevice func() string,
) *Checker {
	return &Checker{
		lookPath:     lookPath,
		mkdirAll:     mkdirAll,
		createTemp:   createTemp,
		remove:       remove,
		probeInput:   probeInput,
		detectDevice: detectDevice,
	}
}
