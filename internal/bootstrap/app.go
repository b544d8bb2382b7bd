package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"chatterbox-studio/internal/config"
	"chatterbox-studio/internal/diagnostics"
	"chatterbox-studio/internal/domain"
	"chatterbox-studio/internal/engine"
	"chatterbox-studio/internal/jobs"
	"chatterbox-studio/internal/record"
	"chatterbox-studio/internal/worker"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// Recording temp file names, matching what the synthesis and conversion
// tabs expect to reuse as reference and target voices.
const (
	RefRecordingName    = "temp_tts_ref.wav"
	TargetRecordingName = "temp_vc_target.wav"
)

var audioExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a"}

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.wav;*.mp3;*.flac;*.ogg;*.m4a",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// modelProvider isolates lazy model acquisition behind an interface.
type modelProvider interface {
	Synthesizer(ctx context.Context) (engine.Synthesizer, error)
	Converter(ctx context.Context) (engine.Converter, error)
	Device() string
}

// jobWorker is the common surface of single and batch workers.
type jobWorker interface {
	Run(ctx context.Context)
	Events() <-chan jobs.Event
}

// App wires configuration, jobs, model loading, recording, and UI runtime
// callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Models      modelProvider
	Recorder    *record.Session
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker

	mu          sync.Mutex
	activeJobID string
	activeBatch *worker.Batch
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets. PortAudio is initialized here so both the microphone
// diagnostic and the recording session can open streams.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".chatterbox-studio", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	if err := portaudio.Initialize(); err != nil {
		log.Warn().Err(err).Msg("portaudio unavailable, recording disabled")
	}

	checker := diagnostics.NewChecker(record.ProbeDefaultInput)
	report := checker.Run(settings)

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Models:      engine.NewLoader(settings.ModelCLIPath, engine.ResolveDevice(settings.Device)),
		Recorder:    record.NewSession(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		events:      jobs.NewEventBus(1000),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "ChatterBox Studio",
		Width:       1180,
		Height:      820,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.Recorder.Stop()
			_ = portaudio.Terminate()
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns environment checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(normalizeSettings(settings)), nil
}

// FixDiagnostic applies an automatic remediation for one failed check.
// Only the output directory can be repaired in-process; the model CLI and
// audio hardware need user action.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	switch id {
	case "output_dir":
		if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
			return a.refreshDiagnosticsFromSettings(settings), fmt.Errorf("create output directory %s: %w", settings.OutputDir, err)
		}
		if err := a.Store.Save(settings); err != nil {
			return a.refreshDiagnosticsFromSettings(settings), fmt.Errorf("save settings after fix: %w", err)
		}
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("no automatic fix for diagnostic item: %s", id)
	}

	return a.refreshDiagnosticsFromSettings(settings), nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, refreshes diagnostics, and
// rebuilds the model loader when the CLI path or device preference changed.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	previous := a.Settings
	a.Settings = normalized
	if previous.ModelCLIPath != normalized.ModelCLIPath || previous.Device != normalized.Device {
		a.Models = engine.NewLoader(normalized.ModelCLIPath, engine.ResolveDevice(normalized.Device))
	}
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// DefaultParams returns the generation control values the UI starts with.
func (a *App) DefaultParams() domain.GenerationParams {
	return domain.DefaultGenerationParams()
}

// DeviceInfo reports the compute device inference runs on.
func (a *App) DeviceInfo() string {
	return a.Models.Device()
}

// PickAudioFile opens a native file dialog for one audio file.
func (a *App) PickAudioFile(title string) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(title) == "" {
		title = "Select audio file"
	}
	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   title,
		Filters: audioDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickAudioFiles opens a native multi-select dialog for conversion inputs.
func (a *App) PickAudioFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio files",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	return FilterAudioFiles(paths), nil
}

// PickOutputDirectory opens a native directory picker for generated audio.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// FilterAudioFiles keeps only paths with a supported audio extension. Used
// for both dialog results and drag-and-drop payloads.
func FilterAudioFiles(paths []string) []string {
	var out []string
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(trimmed))
		for _, allowed := range audioExtensions {
			if ext == allowed {
				out = append(out, trimmed)
				break
			}
		}
	}
	return out
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openWithSystemHandler(openPath)
}

// PlayAudio opens a generated file in the platform's default audio player.
func (a *App) PlayAudio(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		return fmt.Errorf("audio path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve audio path: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("audio path is a directory: %s", target)
	}

	return openWithSystemHandler(target)
}

// StartRecording begins buffering microphone input. A missing input device
// is not an error; the session simply stays inactive.
func (a *App) StartRecording() {
	a.Recorder.Start()
}

// RecordingActive reports whether a recording is in progress.
func (a *App) RecordingActive() bool {
	return a.Recorder.Active()
}

// StopRecording stops the microphone session and writes the capture as a
// WAV file named for its purpose: "tts_ref" for a synthesis reference
// voice, "vc_target" for a conversion target voice. Returns the saved path,
// or an empty string when nothing was captured.
func (a *App) StopRecording(kind string) (string, error) {
	var name string
	switch kind {
	case "tts_ref":
		name = RefRecordingName
	case "vc_target":
		name = TargetRecordingName
	default:
		a.Recorder.Stop()
		return "", fmt.Errorf("unknown recording kind: %s", kind)
	}

	settings, err := a.loadSettings()
	if err != nil {
		a.Recorder.Stop()
		return "", err
	}
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		a.Recorder.Stop()
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(settings.OutputDir, name)
	saved, err := a.Recorder.Save(path)
	if err != nil {
		return "", fmt.Errorf("save recording: %w", err)
	}
	if !saved {
		return "", nil
	}

	log.Info().Str("path", path).Msg("recording saved")
	return path, nil
}

// StartSynthesis generates speech for one text into the fixed temp output.
func (a *App) StartSynthesis(text string, params domain.GenerationParams) (domain.Job, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Job{}, fmt.Errorf("text is empty")
	}

	settings, err := a.prepareOutputDir()
	if err != nil {
		return domain.Job{}, err
	}

	return a.startJob(domain.JobKindSynthesis, func(ctx context.Context) (jobWorker, *worker.Batch, error) {
		synth, err := a.Models.Synthesizer(ctx)
		if err != nil {
			return nil, nil, err
		}
		return worker.NewSingleSynthesis(synth, trimmed, params, settings.OutputDir), nil, nil
	})
}

// StartBatchSynthesis generates one audio file per text item. In multiline
// mode every non-empty line is a separate item; otherwise the whole text is
// one item.
func (a *App) StartBatchSynthesis(text string, multiline bool, params domain.GenerationParams) (domain.Job, error) {
	items := worker.SplitTexts(text, multiline)
	if len(items) == 0 {
		return domain.Job{}, fmt.Errorf("no text to synthesize")
	}

	settings, err := a.prepareOutputDir()
	if err != nil {
		return domain.Job{}, err
	}

	return a.startJob(domain.JobKindSynthesis, func(ctx context.Context) (jobWorker, *worker.Batch, error) {
		synth, err := a.Models.Synthesizer(ctx)
		if err != nil {
			return nil, nil, err
		}
		batch := worker.NewBatchSynthesis(synth, items, settings.OutputDir, settings.BaseFilename, params)
		return batch, batch, nil
	})
}

// StartConversion converts one audio file toward the target voice into the
// fixed temp output.
func (a *App) StartConversion(inputPath, targetVoicePath string) (domain.Job, error) {
	input := strings.TrimSpace(inputPath)
	if input == "" {
		return domain.Job{}, fmt.Errorf("input audio path is empty")
	}

	settings, err := a.prepareOutputDir()
	if err != nil {
		return domain.Job{}, err
	}

	return a.startJob(domain.JobKindConversion, func(ctx context.Context) (jobWorker, *worker.Batch, error) {
		conv, err := a.Models.Converter(ctx)
		if err != nil {
			return nil, nil, err
		}
		return worker.NewSingleConversion(conv, input, strings.TrimSpace(targetVoicePath), settings.OutputDir), nil, nil
	})
}

// StartBatchConversion converts each input file toward the target voice.
func (a *App) StartBatchConversion(inputFiles []string, targetVoicePath string) (domain.Job, error) {
	inputs := FilterAudioFiles(inputFiles)
	if len(inputs) == 0 {
		return domain.Job{}, fmt.Errorf("no audio files to convert")
	}

	settings, err := a.prepareOutputDir()
	if err != nil {
		return domain.Job{}, err
	}

	return a.startJob(domain.JobKindConversion, func(ctx context.Context) (jobWorker, *worker.Batch, error) {
		conv, err := a.Models.Converter(ctx)
		if err != nil {
			return nil, nil, err
		}
		batch := worker.NewBatchConversion(conv, inputs, settings.OutputDir, strings.TrimSpace(targetVoicePath))
		return batch, batch, nil
	})
}

// StopBatch requests a cooperative stop of the running batch job. The item
// currently being generated always completes.
func (a *App) StopBatch() error {
	a.mu.Lock()
	batch := a.activeBatch
	jobID := a.activeJobID
	a.mu.Unlock()

	if batch == nil {
		return jobs.ErrNoRunningJob
	}

	batch.RequestStop()
	log.Info().Str("jobId", jobID).Msg("batch stop requested")
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// startJob registers a new job and runs it asynchronously. The build
// callback acquires the model and constructs the worker; model loading
// happens inside the job goroutine so the UI sees the loading status while
// the first call pays the startup cost.
func (a *App) startJob(kind domain.JobKind, build func(ctx context.Context) (jobWorker, *worker.Batch, error)) (domain.Job, error) {
	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID, kind); err != nil {
		return domain.Job{}, err
	}

	a.mu.Lock()
	a.activeJobID = jobID
	a.activeBatch = nil
	a.mu.Unlock()

	a.publishStatus(jobID, domain.JobStatusLoading, "Loading model")

	go func() {
		ctx := context.Background()

		w, batch, err := build(ctx)
		if err != nil {
			_ = a.Jobs.Transition(domain.JobStatusFailed)
			a.publishEvent(jobs.Event{
				JobID:   jobID,
				Kind:    jobs.EventKindStatus,
				Status:  domain.JobStatusFailed,
				Message: "Model load failed",
				Error:   err.Error(),
			})
			a.clearActiveJob(jobID)
			return
		}

		if batch != nil {
			a.mu.Lock()
			a.activeBatch = batch
			a.mu.Unlock()
		}

		if err := a.Jobs.Transition(domain.JobStatusRunning); err == nil {
			a.publishStatus(jobID, domain.JobStatusRunning, "Generation started")
		}

		a.runWorker(jobID, w, batch)
	}()

	return a.Jobs.Current(), nil
}

// runWorker drains the worker's event stream into the bus and maps the
// outcome to a terminal job status. A batch run ends done or stopped no
// matter how many items failed; a single job ends with its item.
func (a *App) runWorker(jobID string, w jobWorker, batch *worker.Batch) {
	go w.Run(context.Background())

	final := domain.JobStatusDone
	for event := range w.Events() {
		event.JobID = jobID
		switch event.Kind {
		case jobs.EventKindItemCompleted:
			final = domain.JobStatusDone
		case jobs.EventKindItemFailed:
			final = domain.JobStatusFailed
		}
		a.publishEvent(event)
	}

	if batch != nil {
		final = domain.JobStatusDone
		if batch.Stopped() {
			final = domain.JobStatusStopped
		}
	}

	if err := a.Jobs.Transition(final); err == nil {
		a.publishStatus(jobID, final, finalMessage(final))
	}
	a.clearActiveJob(jobID)
}

// finalMessage maps a terminal status to its UI summary line.
func finalMessage(status domain.JobStatus) string {
	switch status {
	case domain.JobStatusDone:
		return "Job completed"
	case domain.JobStatusStopped:
		return "Job stopped"
	default:
		return "Job failed"
	}
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Kind:    jobs.EventKindStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// clearActiveJob releases job handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.activeBatch = nil
	}
}

// loadSettings loads, normalizes, and caches the persisted settings.
func (a *App) loadSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// prepareOutputDir loads settings and makes sure the output directory
// exists before a job starts writing into it.
func (a *App) prepareOutputDir() (domain.Settings, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.Settings{}, err
	}
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return domain.Settings{}, fmt.Errorf("create output directory: %w", err)
	}
	return settings, nil
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and fills blanks from defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	defaults := config.DefaultSettings()

	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.ModelCLIPath = strings.TrimSpace(settings.ModelCLIPath)
	settings.Device = strings.TrimSpace(settings.Device)
	settings.BaseFilename = strings.TrimSpace(settings.BaseFilename)

	if settings.OutputDir == "" {
		settings.OutputDir = defaults.OutputDir
	}
	if settings.ModelCLIPath == "" {
		settings.ModelCLIPath = defaults.ModelCLIPath
	}
	if settings.Device == "" {
		settings.Device = defaults.Device
	}
	if settings.BaseFilename == "" {
		settings.BaseFilename = defaults.BaseFilename
	}
	return settings
}

// openWithSystemHandler launches the platform handler for the given path:
// the file manager for directories, the default player for audio files.
func openWithSystemHandler(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch system handler: %w", err)
	}
	return nil
}
