// Package worker runs model inference off the control goroutine. A worker
// instance processes exactly one job, streams events over its own channel,
// and is discarded after the channel closes.
package worker

import (
	"context"
	"path/filepath"

	"chatterbox-studio/internal/domain"
	"chatterbox-studio/internal/engine"
	"chatterbox-studio/internal/jobs"
)

// Single runs one synthesis or conversion call to completion or failure.
// There is no cancellation: the blocking model call always finishes. The
// events channel carries stage progress followed by exactly one terminal
// item event, then closes.
type Single struct {
	item   string
	stages []string
	call   func(ctx context.Context) (string, error)
	events chan jobs.Event
}

// NewSingleSynthesis prepares a single text-to-speech job writing to the
// fixed temp output name in outputDir.
func NewSingleSynthesis(synth engine.Synthesizer, text string, params domain.GenerationParams, outputDir string) *Single {
	params = params.Clamp()
	outputPath := filepath.Join(outputDir, TempSynthesisOutput)

	stages := []string{"generating audio"}
	if params.Seed != 0 {
		stages = []string{"setting seed", "generating audio"}
	}

	return &Single{
		item:   text,
		stages: stages,
		call: func(ctx context.Context) (string, error) {
			err := synth.Synthesize(ctx, engine.SynthesisRequest{
				Text:         text,
				RefAudioPath: params.RefAudioPath,
				Exaggeration: params.Exaggeration,
				CFGWeight:    params.CFGWeight,
				Temperature:  params.Temperature,
				Seed:         params.Seed,
				OutputPath:   outputPath,
			})
			return outputPath, err
		},
		events: make(chan jobs.Event, 8),
	}
}

// NewSingleConversion prepares a single voice-conversion job writing to the
// fixed temp output name in outputDir.
func NewSingleConversion(conv engine.Converter, inputPath, targetVoicePath, outputDir string) *Single {
	outputPath := filepath.Join(outputDir, TempConversionOutput)

	return &Single{
		item:   inputPath,
		stages: []string{"processing voice conversion"},
		call: func(ctx context.Context) (string, error) {
			err := conv.Convert(ctx, engine.ConversionRequest{
				InputPath:       inputPath,
				TargetVoicePath: targetVoicePath,
				OutputPath:      outputPath,
			})
			return outputPath, err
		},
		events: make(chan jobs.Event, 8),
	}
}

// Events returns the worker's event stream. It closes after the terminal
// event has been delivered.
func (w *Single) Events() <-chan jobs.Event {
	return w.events
}

// Run executes the job. Call it on a background goroutine; it blocks for
// the duration of the model call.
func (w *Single) Run(ctx context.Context) {
	defer close(w.events)

	for _, stage := range w.stages {
		w.events <- jobs.Event{
			Kind:    jobs.EventKindProgress,
			Current: 1,
			Total:   1,
			Message: stage,
		}
	}

	outputPath, err := w.call(ctx)
	if err != nil {
		w.events <- jobs.Event{
			Kind:  jobs.EventKindItemFailed,
			Item:  w.item,
			Error: err.Error(),
		}
		return
	}

	w.events <- jobs.Event{
		Kind:       jobs.EventKindItemCompleted,
		Item:       w.item,
		OutputPath: outputPath,
	}
}
