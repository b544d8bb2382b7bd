package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// CLIEngine invokes the chatterbox executable for every model call. One
// engine instance is bound to a compute device for the process lifetime.
type CLIEngine struct {
	binPath string
	device  string
	runner  commandRunner
	stat    func(name string) (os.FileInfo, error)
}

// NewCLIEngine constructs the production engine with OS dependencies.
func NewCLIEngine(binPath, device string) *CLIEngine {
	return &CLIEngine{
		binPath: binPath,
		device:  device,
		runner:  &execRunner{},
		stat:    os.Stat,
	}
}

// Device reports the compute device this engine is bound to.
func (e *CLIEngine) Device() string {
	return e.device
}

// Synthesize runs one text-to-speech call, blocking until the model
// returns. The waveform lands at req.OutputPath.
func (e *CLIEngine) Synthesize(ctx context.Context, req SynthesisRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return &CallError{Op: "synthesize", Message: "text is required"}
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return &CallError{Op: "synthesize", Message: "output path is required"}
	}

	args := buildSynthesisArgs(req, e.device)
	log.Debug().Str("device", e.device).Int64("seed", req.Seed).Msg("invoking synthesis")
	return e.invoke(ctx, "synthesize", args, req.OutputPath)
}

// Convert runs one voice-conversion call, blocking until the model returns.
func (e *CLIEngine) Convert(ctx context.Context, req ConversionRequest) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return &CallError{Op: "convert", Message: "input audio path is required"}
	}
	if _, err := e.stat(req.InputPath); err != nil {
		return &CallError{
			Op:      "convert",
			Message: fmt.Sprintf("cannot access input audio: %s", req.InputPath),
			Err:     err,
		}
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return &CallError{Op: "convert", Message: "output path is required"}
	}

	args := buildConversionArgs(req, e.device)
	log.Debug().Str("device", e.device).Str("input", req.InputPath).Msg("invoking conversion")
	return e.invoke(ctx, "convert", args, req.OutputPath)
}

// invoke runs the CLI and verifies the expected output file exists.
func (e *CLIEngine) invoke(ctx context.Context, op string, args []string, outputPath string) error {
	result, runErr := e.runner.Run(ctx, e.binPath, args...)
	if runErr != nil {
		return &CallError{
			Op:      op,
			Message: "model call failed",
			Output:  combinedOutput(result),
			Err:     runErr,
		}
	}

	if _, err := e.stat(outputPath); err != nil {
		return &CallError{
			Op:      op,
			Message: "model call completed but output file is missing",
			Output:  combinedOutput(result),
			Err:     err,
		}
	}
	return nil
}

// combinedOutput merges trimmed stderr and stdout for error reporting.
func combinedOutput(result commandResult) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(result.Stderr); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(result.Stdout); s != "" {
		parts = append(parts, s)
	}
	out := strings.Join(parts, " | ")
	if len(out) > 500 {
		out = out[:500] + "..."
	}
	return out
}

// buildSynthesisArgs builds CLI args for one TTS call.
func buildSynthesisArgs(req SynthesisRequest, device string) []string {
	args := []string{
		"tts",
		"--text", req.Text,
		"--exaggeration", formatFloat(req.Exaggeration),
		"--cfg-weight", formatFloat(req.CFGWeight),
		"--temperature", formatFloat(req.Temperature),
		"--device", device,
		"--out", req.OutputPath,
	}
	if req.RefAudioPath != "" {
		args = append(args, "--ref-audio", req.RefAudioPath)
	}
	if req.Seed != 0 {
		args = append(args, "--seed", strconv.FormatInt(req.Seed, 10))
	}
	return args
}

// buildConversionArgs builds CLI args for one voice-conversion call.
func buildConversionArgs(req ConversionRequest, device string) []string {
	args := []string{
		"vc",
		"--input", req.InputPath,
		"--device", device,
		"--out", req.OutputPath,
	}
	if req.TargetVoicePath != "" {
		args = append(args, "--target-voice", req.TargetVoicePath)
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
