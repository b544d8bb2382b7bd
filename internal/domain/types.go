package domain

// Parameter bounds for generation controls. Values outside these ranges are
// clamped, matching the slider limits exposed in the UI.
const (
	MinExaggeration = 0.25
	MaxExaggeration = 2.0
	MinCFGWeight    = 0.0
	MaxCFGWeight    = 1.0
	MinTemperature  = 0.05
	MaxTemperature  = 5.0
)

// JobStatus tracks the lifecycle of a single generation job.
type JobStatus string

const (
	JobStatusIdle    JobStatus = "idle"
	JobStatusLoading JobStatus = "loading"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
	JobStatusStopped JobStatus = "stopped"
)

// JobKind identifies which model capability a job exercises.
type JobKind string

const (
	JobKindSynthesis  JobKind = "synthesis"
	JobKindConversion JobKind = "conversion"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	OutputDir    string `json:"outputDir"`
	ModelCLIPath string `json:"modelCliPath"`
	Device       string `json:"device"`
	BaseFilename string `json:"baseFilename"`
}

// GenerationParams is an immutable snapshot of the generation controls for
/// one inference call. Seed 0 is the "random" sentinel: no explicit seeding
// is performed and the model picks its own.
type GenerationParams struct {
	Exaggeration float64 `json:"exaggeration"`
	CFGWeight    float64 `json:"cfgWeight"`
	Temperature  float64 `json:"temperature"`
	Seed         int64   `json:"seed"`
	RefAudioPath string  `json:"refAudioPath,omitempty"`
}

// DefaultGenerationParams returns the control values the UI starts with.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Exaggeration: 0.5,
		CFGWeight:    0.5,
		Temperature:  0.8,
		Seed:         0,
	}
}

// Clamp returns a copy with every control forced into its valid range.
func (p GenerationParams) Clamp() GenerationParams {
	p.Exaggeration = clamp(p.Exaggeration, MinExaggeration, MaxExaggeration)
	p.CFGWeight = clamp(p.CFGWeight, MinCFGWeight, MaxCFGWeight)
	p.Temperature = clamp(p.Temperature, MinTemperature, MaxTemperature)
	if p.Seed < 0 {
		p.Seed = 0
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Job stores the current job identity, kind, and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Kind   JobKind   `json:"kind"`
	Status JobStatus `json:"status"`
}

// TemplateOption is one built-in text snippet set for the synthesis tab.
type TemplateOption struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}
