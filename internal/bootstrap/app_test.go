package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"chatterbox-studio/internal/domain"
	"chatterbox-studio/internal/engine"
	"chatterbox-studio/internal/jobs"
	"chatterbox-studio/internal/record"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
	saved    []domain.Settings
}

// Load returns preconfigured settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// Save records the persisted settings.
func (s *fakeStore) Save(settings domain.Settings) error {
	s.settings = settings
	s.saved = append(s.saved, settings)
	return nil
}

// fakeSynth allows injecting custom synthesis behavior per test.
type fakeSynth struct {
	mu       sync.Mutex
	requests []engine.SynthesisRequest
	run      func(req engine.SynthesisRequest) error
}

func (f *fakeSynth) Synthesize(_ context.Context, req engine.SynthesisRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.run == nil {
		return nil
	}
	return f.run(req)
}

func (f *fakeSynth) calls() []engine.SynthesisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.SynthesisRequest(nil), f.requests...)
}

// fakeConv allows injecting custom conversion behavior per test.
type fakeConv struct {
	run func(req engine.ConversionRequest) error
}

func (f *fakeConv) Convert(_ context.Context, req engine.ConversionRequest) error {
	if f.run == nil {
		return nil
	}
	return f.run(req)
}

// fakeModels satisfies modelProvider without touching the real CLI.
type fakeModels struct {
	synth   engine.Synthesizer
	conv    engine.Converter
	loadErr error
	device  string
}

func (f *fakeModels) Synthesizer(context.Context) (engine.Synthesizer, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.synth, nil
}

func (f *fakeModels) Converter(context.Context) (engine.Converter, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.conv, nil
}

func (f *fakeModels) Device() string {
	if f.device == "" {
		return engine.DeviceCPU
	}
	return f.device
}

func newTestApp(store *fakeStore, models modelProvider) *App {
	return &App{
		Settings: store.settings,
		Store:    store,
		Jobs:     jobs.NewManager(),
		Models:   models,
		Recorder: record.NewSession(),
		events:   jobs.NewEventBus(100),
	}
}

func testStore(t *testing.T) *fakeStore {
	t.Helper()
	return &fakeStore{
		settings: domain.Settings{
			OutputDir:    t.TempDir(),
			ModelCLIPath: "chatterbox",
			Device:       "auto",
			BaseFilename: "output",
		},
	}
}

// TestStartSynthesisEnforcesSingleRunningJob checks the single-job guard.
func TestStartSynthesisEnforcesSingleRunningJob(t *testing.T) {
	release := make(chan struct{})
	synth := &fakeSynth{run: func(engine.SynthesisRequest) error {
		<-release
		return nil
	}}
	app := newTestApp(testStore(t), &fakeModels{synth: synth})

	if _, err := app.StartSynthesis("first", domain.DefaultGenerationParams()); err != nil {
		t.Fatalf("start first job: %v", err)
	}
	if _, err := app.StartSynthesis("second", domain.DefaultGenerationParams()); !errors.Is(err, jobs.ErrJobAlreadyRunning) {
		t.Fatalf("second start error = %v, want %v", err, jobs.ErrJobAlreadyRunning)
	}

	close(release)
	waitForStatus(t, app, domain.JobStatusDone)
}

// TestStartSynthesisPublishesStageAndResultEvents checks single-job flow.
func TestStartSynthesisPublishesStageAndResultEvents(t *testing.T) {
	store := testStore(t)
	synth := &fakeSynth{}
	app := newTestApp(store, &fakeModels{synth: synth})

	job, err := app.StartSynthesis("Hello there", domain.DefaultGenerationParams())
	if err != nil {
		t.Fatalf("start job: %v", err)
	}
	if job.Kind != domain.JobKindSynthesis {
		t.Fatalf("kind = %s, want synthesis", job.Kind)
	}

	waitForStatus(t, app, domain.JobStatusDone)

	events := app.JobEvents(0)
	assertEventKindExists(t, events, jobs.EventKindProgress)
	assertEventKindExists(t, events, jobs.EventKindItemCompleted)

	completed := findEvent(t, events, jobs.EventKindItemCompleted)
	wantPath := filepath.Join(store.settings.OutputDir, "temp_tts_output.wav")
	if completed.OutputPath != wantPath {
		t.Fatalf("output path = %s, want %s", completed.OutputPath, wantPath)
	}
	if completed.JobID != job.ID {
		t.Fatalf("event job id = %s, want %s", completed.JobID, job.ID)
	}
}

// TestStartBatchSynthesisNamesOutputsSequentially checks multiline mode.
func TestStartBatchSynthesisNamesOutputsSequentially(t *testing.T) {
	store := testStore(t)
	synth := &fakeSynth{}
	app := newTestApp(store, &fakeModels{synth: synth})

	if _, err := app.StartBatchSynthesis("Hello\n\nWorld\n", true, domain.DefaultGenerationParams()); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForStatus(t, app, domain.JobStatusDone)

	requests := synth.calls()
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	if got := filepath.Base(requests[0].OutputPath); got != "output_001.wav" {
		t.Fatalf("first output = %s, want output_001.wav", got)
	}
	if got := filepath.Base(requests[1].OutputPath); got != "output_002.wav" {
		t.Fatalf("second output = %s, want output_002.wav", got)
	}

	assertEventKindExists(t, app.JobEvents(0), jobs.EventKindFinished)
}

// TestStartBatchSynthesisRejectsEmptyText checks input validation.
func TestStartBatchSynthesisRejectsEmptyText(t *testing.T) {
	app := newTestApp(testStore(t), &fakeModels{synth: &fakeSynth{}})

	if _, err := app.StartBatchSynthesis("  \n \n ", true, domain.DefaultGenerationParams()); err == nil {
		t.Fatal("expected error for blank text")
	}
	if app.CurrentJob().Status != domain.JobStatusIdle {
		t.Fatalf("status = %s, want idle", app.CurrentJob().Status)
	}
}

// TestStartSynthesisModelLoadFailure checks the loading error path.
func TestStartSynthesisModelLoadFailure(t *testing.T) {
	app := newTestApp(testStore(t), &fakeModels{loadErr: errors.New("chatterbox not found")})

	if _, err := app.StartSynthesis("text", domain.DefaultGenerationParams()); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForStatus(t, app, domain.JobStatusFailed)

	events := app.JobEvents(0)
	var found bool
	for _, event := range events {
		if event.Kind == jobs.EventKindStatus && event.Status == domain.JobStatusFailed {
			if !strings.Contains(event.Error, "chatterbox not found") {
				t.Fatalf("failure event error = %q", event.Error)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("missing failed status event")
	}
}

// TestStopBatchEndsRunStopped checks cooperative batch cancellation.
func TestStopBatchEndsRunStopped(t *testing.T) {
	var app *App
	synth := &fakeSynth{}
	synth.run = func(engine.SynthesisRequest) error {
		if len(synth.calls()) == 1 {
			if err := app.StopBatch(); err != nil {
				t.Errorf("stop batch: %v", err)
			}
		}
		return nil
	}
	app = newTestApp(testStore(t), &fakeModels{synth: synth})

	if _, err := app.StartBatchSynthesis("a\nb\nc", true, domain.DefaultGenerationParams()); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForStatus(t, app, domain.JobStatusStopped)

	if got := len(synth.calls()); got != 1 {
		t.Fatalf("processed items = %d, want 1", got)
	}
	assertEventKindExists(t, app.JobEvents(0), jobs.EventKindFinished)

	if err := app.StopBatch(); !errors.Is(err, jobs.ErrNoRunningJob) {
		t.Fatalf("stop after completion = %v, want %v", err, jobs.ErrNoRunningJob)
	}
}

// TestStartConversionItemFailureFailsJob checks the conversion error path.
func TestStartConversionItemFailureFailsJob(t *testing.T) {
	conv := &fakeConv{run: func(engine.ConversionRequest) error {
		return errors.New("unreadable input")
	}}
	app := newTestApp(testStore(t), &fakeModels{conv: conv})

	if _, err := app.StartConversion("/in/take.wav", "/voices/target.wav"); err != nil {
		t.Fatalf("start job: %v", err)
	}

	waitForStatus(t, app, domain.JobStatusFailed)
	assertEventKindExists(t, app.JobEvents(0), jobs.EventKindItemFailed)
}

// TestStartBatchConversionFiltersNonAudioInputs checks drop payload handling.
func TestStartBatchConversionFiltersNonAudioInputs(t *testing.T) {
	app := newTestApp(testStore(t), &fakeModels{conv: &fakeConv{}})

	if _, err := app.StartBatchConversion([]string{"/tmp/notes.txt", ""}, ""); err == nil {
		t.Fatal("expected error when no audio files remain")
	}

	if _, err := app.StartBatchConversion([]string{"/tmp/notes.txt", "/tmp/take.wav"}, ""); err != nil {
		t.Fatalf("start job: %v", err)
	}
	waitForStatus(t, app, domain.JobStatusDone)
}

// TestStopRecordingWithoutCaptureSavesNothing checks the empty-capture rule.
func TestStopRecordingWithoutCaptureSavesNothing(t *testing.T) {
	app := newTestApp(testStore(t), &fakeModels{})

	path, err := app.StopRecording("tts_ref")
	if err != nil {
		t.Fatalf("stop recording: %v", err)
	}
	if path != "" {
		t.Fatalf("path = %q, want empty", path)
	}

	if _, err := app.StopRecording("bogus"); err == nil {
		t.Fatal("expected error for unknown recording kind")
	}
}

// TestFilterAudioFiles checks extension filtering for drops and dialogs.
func TestFilterAudioFiles(t *testing.T) {
	got := FilterAudioFiles([]string{
		"/a/take.wav",
		"/a/song.MP3",
		"/a/notes.txt",
		"  /a/voice.flac  ",
		"",
		"/a/clip.ogg",
		"/a/memo.m4a",
		"/a/archive.zip",
	})

	want := []string{"/a/take.wav", "/a/song.MP3", "/a/voice.flac", "/a/clip.ogg", "/a/memo.m4a"}
	if len(got) != len(want) {
		t.Fatalf("filtered = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("filtered[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestSaveSettingsNormalizesAndRebuildsLoader checks settings handling.
func TestSaveSettingsNormalizesAndRebuildsLoader(t *testing.T) {
	store := testStore(t)
	models := &fakeModels{synth: &fakeSynth{}}
	app := newTestApp(store, models)

	saved, err := app.SaveSettings(domain.Settings{
		OutputDir:    "  /tmp/out  ",
		ModelCLIPath: "",
		Device:       "",
		BaseFilename: " ",
	})
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}

	if saved.OutputDir != "/tmp/out" {
		t.Fatalf("output dir = %q", saved.OutputDir)
	}
	if saved.ModelCLIPath != "chatterbox" {
		t.Fatalf("model cli = %q, want chatterbox", saved.ModelCLIPath)
	}
	if saved.Device != "auto" {
		t.Fatalf("device = %q, want auto", saved.Device)
	}
	if saved.BaseFilename != "output" {
		t.Fatalf("base filename = %q, want output", saved.BaseFilename)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saves = %d, want 1", len(store.saved))
	}

	// Same CLI path and device preference: the injected provider survives.
	if _, ok := app.Models.(*fakeModels); !ok {
		t.Fatal("loader rebuilt without a CLI or device change")
	}
}

// TestGetTemplates checks the built-in snippet catalog.
func TestGetTemplates(t *testing.T) {
	app := newTestApp(testStore(t), &fakeModels{})

	templates := app.GetTemplates()
	if len(templates) != 3 {
		t.Fatalf("templates = %d, want 3", len(templates))
	}

	text := app.TemplateText("game")
	if !strings.Contains(text, "Welcome, hero!") {
		t.Fatalf("game template text = %q", text)
	}
	if lines := strings.Split(text, "\n"); len(lines) != 5 {
		t.Fatalf("game template lines = %d, want 5", len(lines))
	}

	if app.TemplateText("unknown") != "" {
		t.Fatal("unknown template must return empty text")
	}
}

// TestFixDiagnosticRejectsUnsupportedItems checks remediation scoping.
func TestFixDiagnosticRejectsUnsupportedItems(t *testing.T) {
	app := newTestApp(testStore(t), &fakeModels{})

	if _, err := app.FixDiagnostic("model_cli"); err == nil {
		t.Fatal("expected error for unsupported fix")
	}
	if _, err := app.FixDiagnostic(""); err == nil {
		t.Fatal("expected error for empty item id")
	}

	if _, err := app.FixDiagnostic("output_dir"); err != nil {
		t.Fatalf("fix output_dir: %v", err)
	}
}

// waitForStatus polls until the job reaches desired status or times out.
func waitForStatus(t *testing.T, app *App, want domain.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if app.CurrentJob().Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", app.CurrentJob().Status, want)
}

// assertEventKindExists verifies at least one event of given kind exists.
func assertEventKindExists(t *testing.T, events []jobs.Event, want jobs.EventKind) {
	t.Helper()
	for _, event := range events {
		if event.Kind == want {
			return
		}
	}
	t.Fatalf("event kind %s not found", want)
}

// findEvent returns the first event of the given kind.
func findEvent(t *testing.T, events []jobs.Event, want jobs.EventKind) jobs.Event {
	t.Helper()
	for _, event := range events {
		if event.Kind == want {
			return event
		}
	}
	t.Fatalf("event kind %s not found", want)
	return jobs.Event{}
}
