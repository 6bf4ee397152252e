package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"storyreel/config"
	"storyreel/speech"
	"storyreel/types"
)

// Generation modes.
const (
	ModeGenerate = "generate" // LLM writes the narration from source text
	ModeFixed    = "fixed"    // each input line is one frame, verbatim
)

// Title strategies for when no explicit title is given, passed through
// to the content generator.
const (
	TitleAuto = "auto" // extract from the source text
	TitleLLM  = "llm"  // write a fresh title
)

// Request is one video generation job. Zero values fall back to
// configuration defaults.
type Request struct {
	Text  string
	Mode  string // ModeGenerate or ModeFixed, default generate
	Title string // explicit title wins over any strategy

	NScenes             int
	MinNarrationWords   int
	MaxNarrationWords   int
	MinImagePromptWords int
	MaxImagePromptWords int

	// Audio
	TTSMode     string
	Voice       string
	TTSWorkflow string
	TTSSpeed    float64
	RefAudio    string

	// Deprecated: VoiceID is the legacy single-field spelling. A value
	// ending in ".json" selects a cloud workflow, anything else a local
	// voice. Ignored when TTSMode or Voice is set.
	VoiceID string

	// Image
	ImageWorkflow string
	PromptPrefix  string

	// Template reference in any accepted spelling, empty for default.
	Template       string
	TemplateParams map[string]any

	Metadata *types.ContentMetadata

	// BGM track: literal path or filename under the music dirs. Empty
	// disables background music.
	BGM string

	// OutputPath copies the final video to an external location; the
	// task directory keeps its own copy either way.
	OutputPath string
}

// resolveTTS folds the deprecated VoiceID spelling and config defaults
// into explicit mode+voice+workflow values.
func resolveTTS(req *Request, cfg *config.Config) (mode, voice, workflow string, speed float64) {
	mode = req.TTSMode
	voice = req.Voice
	workflow = req.TTSWorkflow

	if mode == "" && voice == "" && req.VoiceID != "" {
		log.Printf("[pipeline] voice_id is deprecated, use tts_mode + voice/workflow")
		if strings.HasSuffix(req.VoiceID, ".json") {
			mode = speech.ModeCloud
			workflow = req.VoiceID
		} else {
			mode = speech.ModeLocal
			voice = req.VoiceID
		}
	}

	if mode == "" {
		mode = cfg.TTS.InferenceMode
	}
	if mode == speech.ModeLocal && voice == "" {
		voice = cfg.TTS.Local.Voice
	}
	speed = req.TTSSpeed
	if speed == 0 {
		speed = cfg.TTS.Local.Speed
	}
	return mode, voice, workflow, speed
}

// resolveTitle picks the video title: an explicit one wins, generate
// mode extracts one from the text, fixed mode asks for a written one.
func (p *Pipeline) resolveTitle(ctx context.Context, req *Request, mode string) (string, error) {
	if req.Title != "" {
		return req.Title, nil
	}
	strategy := TitleLLM
	if mode == ModeGenerate {
		strategy = TitleAuto
	}
	title, err := p.Content.GenerateTitle(ctx, req.Text, strategy)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	return title, nil
}

// splitFixedLines turns fixed-mode input into one narration per
// non-empty line.
func splitFixedLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
