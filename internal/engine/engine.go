// Package engine wraps the external Chatterbox model executable behind
// narrow synthesis and conversion interfaces. The model is an opaque
// collaborator: given text or source audio plus parameters, it produces a
// waveform file. Nothing here touches model internals.
package engine

import (
	"context"
	"fmt"
)

// SynthesisRequest configures one text-to-speech call.
type SynthesisRequest struct {
	Text         string
	RefAudioPath string
	Exaggeration float64
	CFGWeight    float64
	Temperature  float64
	// Seed 0 means no explicit seeding; the model uses its own randomness.
	Seed       int64
	OutputPath string
}

// ConversionRequest configures one voice-conversion call.
type ConversionRequest struct {
	InputPath       string
	TargetVoicePath string
	OutputPath      string
}

// Synthesizer produces speech audio from text.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) error
}

// Converter re-voices existing audio toward a target voice.
type Converter interface {
	Convert(ctx context.Context, req ConversionRequest) error
}

// CallError is a model-invocation failure with captured CLI output.
type CallError struct {
	Op      string `json:"op"`
	Message string `json:"message"`
	Output  string `json:"output,omitempty"`
	Err     error  `json:"-"`
}

// Error formats call failures for logs and UI.
func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	if e.Output == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Output)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
