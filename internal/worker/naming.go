package worker

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Fixed temp output names for single-item jobs, written into the output
// directory and overwritten on every run.
const (
	TempSynthesisOutput  = "temp_tts_output.wav"
	TempConversionOutput = "temp_vc_output.wav"
)

const previewLength = 50

// SeedForItem derives the effective seed for a batch item. Base seed 0 is
// the "random" sentinel and stays 0 (no explicit seeding); any other base
// offsets deterministically by item index.
func SeedForItem(base int64, index int) int64 {
	if base == 0 {
		return 0
	}
	return base + int64(index)
}

// SynthesisFileName builds the output name for a synthesis batch item:
// "{base}.wav" for a single-item batch, "{base}_{i+1:03d}.wav" otherwise.
func SynthesisFileName(base string, index, total int) string {
	if total == 1 {
		return base + ".wav"
	}
	return fmt.Sprintf("%s_%03d.wav", base, index+1)
}

// ConvertedFileName builds the output name for a converted input file:
// "{stem}_converted.wav", independent of batch position.
func ConvertedFileName(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_converted.wav"
}

// SplitTexts turns raw text input into work items. Multi-line mode yields
// one item per non-blank line; single mode yields the whole trimmed block
// as one item. Empty input yields no items.
func SplitTexts(text string, multiline bool) []string {
	if !multiline {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// preview shortens a work item for progress messages.
func preview(item string) string {
	if len(item) <= previewLength {
		return item
	}
	return item[:previewLength] + "..."
}
