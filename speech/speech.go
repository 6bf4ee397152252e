// Package speech turns narration text into audio files, either through
// a local edge-tts style backend or a cloud workflow.
package speech

import (
	"context"
	"fmt"
	"math"
)

// Inference modes.
const (
	ModeLocal = "local"
	ModeCloud = "cloud"
)

// Request describes one synthesis job.
type Request struct {
	Text       string
	Mode       string // ModeLocal or ModeCloud, empty uses the service default
	Voice      string
	Speed      float64 // 1.0 = native pace
	OutputPath string

	// Cloud mode only.
	Workflow string
	RefAudio string
}

// Synthesizer produces an audio file for a narration line.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) error
}

// Error kinds for SynthesisError.
const (
	KindNetwork = "network"
	KindFatal   = "fatal"
)

// SynthesisError classifies a failed synthesis attempt. Network-class
// errors are retried; fatal ones surface immediately.
type SynthesisError struct {
	Kind string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis (%s): %v", e.Kind, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Retryable reports whether the error is network-class.
func (e *SynthesisError) Retryable() bool { return e.Kind == KindNetwork }

// SpeedToRate converts a speed multiplier into the signed percentage
// rate string the local backend expects: 1.0 -> "+0%", 1.2 -> "+20%",
// 0.8 -> "-20%".
func SpeedToRate(speed float64) string {
	pct := int(math.Round((speed - 1.0) * 100))
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}
