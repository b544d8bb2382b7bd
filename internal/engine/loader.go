package engine

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const loadProbeTimeout = 2 * time.Minute

// Loader lazily acquires model handles bound to one compute device. Each
// capability is initialized at most once per process; a failed load is not
// memoized so the user can retry. Handles are read-only once loaded.
type Loader struct {
	mu      sync.Mutex
	binPath string
	device  string

	lookPath func(string) (string, error)
	probe    func(ctx context.Context, binPath, capability string) error

	synth *CLIEngine
	conv  *CLIEngine
}

// NewLoader creates a loader for the given executable and device.
func NewLoader(binPath, device string) *Loader {
	return &Loader{
		binPath:  binPath,
		device:   device,
		lookPath: exec.LookPath,
		probe:    probeCapability,
	}
}

// Device reports the compute device all handles are bound to.
func (l *Loader) Device() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.device
}

// Synthesizer returns the memoized TTS handle, loading it on first use.
func (l *Loader) Synthesizer(ctx context.Context) (Synthesizer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.synth != nil {
		return l.synth, nil
	}

	eng, err := l.load(ctx, "tts")
	if err != nil {
		return nil, err
	}
	l.synth = eng
	return eng, nil
}

// Converter returns the memoized voice-conversion handle, loading it on
// first use.
func (l *Loader) Converter(ctx context.Context) (Converter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conv != nil {
		return l.conv, nil
	}

	eng, err := l.load(ctx, "vc")
	if err != nil {
		return nil, err
	}
	l.conv = eng
	return eng, nil
}

// load resolves the executable and lets the model warm its weights for the
// requested capability. Multi-second on first call, cheap afterwards.
func (l *Loader) load(ctx context.Context, capability string) (*CLIEngine, error) {
	resolved, err := l.lookPath(l.binPath)
	if err != nil {
		return nil, fmt.Errorf("model executable not found: %s: %w", l.binPath, err)
	}

	log.Info().Str("capability", capability).Str("device", l.device).Msg("loading model")
	if err := l.probe(ctx, resolved, capability); err != nil {
		return nil, fmt.Errorf("load %s model: %w", capability, err)
	}

	return NewCLIEngine(resolved, l.device), nil
}

// probeCapability asks the CLI to load and verify the capability's weights.
func probeCapability(ctx context.Context, binPath, capability string) error {
	ctx, cancel := context.WithTimeout(ctx, loadProbeTimeout)
	defer cancel()

	runner := &execRunner{}
	result, err := runner.Run(ctx, binPath, capability, "--check")
	if err != nil {
		return &CallError{
			Op:      "load",
			Message: fmt.Sprintf("%s model is not ready", capability),
			Output:  combinedOutput(result),
			Err:     err,
		}
	}
	return nil
}
