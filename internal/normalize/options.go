package normalize

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned when normalization is asked for an output
// mode it does not implement.
var ErrUnknownMode = errors.New("unknown output mode")

// Mode selects how much of the annotation tree survives normalization.
type Mode uint8

const (
	// ModeSimple keeps page text plus flat blocks: text, type and
	// confidence only. No geometry, no word-level breakdown.
	ModeSimple Mode = iota

	// ModeDetailed adds page dimensions, block geometry and optionally
	// the paragraph/word/symbol breakdown.
	ModeDetailed
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeDetailed:
		return "detailed"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts a config value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "simple":
		return ModeSimple, nil
	case "detailed":
		return ModeDetailed, nil
	default:
		return ModeSimple, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options controls normalization output.
type Options struct {
	// Mode selects simple or detailed output.
	Mode Mode

	// MinConfidence drops blocks whose confidence is below the
	// threshold. Blocks without a confidence value carry 0.0 and
	// survive only a non-positive threshold.
	MinConfidence float64

	// IncludeConfidence emits per-block (and in detailed mode
	// per-paragraph and per-word) confidence values.
	IncludeConfidence bool

	// IncludeBoundingBoxes emits geometry in detailed mode.
	IncludeBoundingBoxes bool

	// IncludeWordLevel emits the paragraph/word/symbol breakdown in
	// detailed mode.
	IncludeWordLevel bool

	// FallbackLanguage is reported as the primary language when no
	// page carries language candidates.
	FallbackLanguage string
}

// DefaultOptions mirrors the default output configuration.
func DefaultOptions() Options {
	return Options{
		Mode:                 ModeSimple,
		MinConfidence:        0.7,
		IncludeConfidence:    true,
		IncludeBoundingBoxes: true,
		IncludeWordLevel:     false,
		FallbackLanguage:     "en",
	}
}
