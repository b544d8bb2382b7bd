package worker

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"chatterbox-studio/internal/domain"
	"chatterbox-studio/internal/engine"
	"chatterbox-studio/internal/jobs"
)

// Batch runs one inference call per work item sequentially. One item's
// failure never aborts the run; a stop request is honored only at
// iteration boundaries, so the in-flight model call always completes. The
// events channel carries, per processed item, one progress event followed
// by one terminal item event; a single finished event closes every run,
// stopped or exhausted alike.
type Batch struct {
	items    []string
	describe func(item string) string
	call     func(ctx context.Context, index int, item string) (string, error)
	stop     atomic.Bool
	events   chan jobs.Event
}

// NewBatchSynthesis prepares a bulk text-to-speech run. Each item derives
// its seed from the template's base seed offset by item index (base 0
// meaning no explicit seeding) and shares the template's reference audio.
func NewBatchSynthesis(synth engine.Synthesizer, texts []string, outputDir, baseFilename string, params domain.GenerationParams) *Batch {
	params = params.Clamp()
	total := len(texts)

	return &Batch{
		items: texts,
		describe: func(item string) string {
			return "Processing: " + preview(item)
		},
		call: func(ctx context.Context, index int, text string) (string, error) {
			outputPath := filepath.Join(outputDir, SynthesisFileName(baseFilename, index, total))
			err := synth.Synthesize(ctx, engine.SynthesisRequest{
				Text:         text,
				RefAudioPath: params.RefAudioPath,
				Exaggeration: params.Exaggeration,
				CFGWeight:    params.CFGWeight,
				Temperature:  params.Temperature,
				Seed:         SeedForItem(params.Seed, index),
				OutputPath:   outputPath,
			})
			return outputPath, err
		},
		events: make(chan jobs.Event, 16),
	}
}

// NewBatchConversion prepares a bulk voice-conversion run. Every item is
// converted toward the same target voice; an empty target path means the
// model's default voice.
func NewBatchConversion(conv engine.Converter, inputFiles []string, outputDir, targetVoicePath string) *Batch {
	return &Batch{
		items: inputFiles,
		describe: func(item string) string {
			return "Converting: " + filepath.Base(item)
		},
		call: func(ctx context.Context, index int, inputPath string) (string, error) {
			outputPath := filepath.Join(outputDir, ConvertedFileName(inputPath))
			err := conv.Convert(ctx, engine.ConversionRequest{
				InputPath:       inputPath,
				TargetVoicePath: targetVoicePath,
				OutputPath:      outputPath,
			})
			return outputPath, err
		},
		events: make(chan jobs.Event, 16),
	}
}

// Total reports the number of work items in the batch.
func (b *Batch) Total() int {
	return len(b.items)
}

// RequestStop asks the run to end before its next item. Cooperative only:
// the current model call is never interrupted.
func (b *Batch) RequestStop() {
	b.stop.Store(true)
}

// Stopped reports whether a stop was requested.
func (b *Batch) Stopped() bool {
	return b.stop.Load()
}

// Events returns the worker's event stream. It closes after the finished
// event has been delivered.
func (b *Batch) Events() <-chan jobs.Event {
	return b.events
}

// Run executes the batch. Call it on a background goroutine; it blocks for
// the duration of every model call.
func (b *Batch) Run(ctx context.Context) {
	defer close(b.events)

	total := len(b.items)
	for index, item := range b.items {
		if b.stop.Load() {
			break
		}

		b.events <- jobs.Event{
			Kind:    jobs.EventKindProgress,
			Current: index + 1,
			Total:   total,
			Message: b.describe(item),
		}

		outputPath, err := b.call(ctx, index, item)
		if err != nil {
			b.events <- jobs.Event{
				Kind:  jobs.EventKindItemFailed,
				Item:  item,
				Error: err.Error(),
			}
			continue
		}

		b.events <- jobs.Event{
			Kind:       jobs.EventKindItemCompleted,
			Item:       item,
			OutputPath: outputPath,
		}
	}

	b.events <- jobs.Event{Kind: jobs.EventKindFinished}
}
