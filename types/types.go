package types

import "time"

// TTS inference modes for a storyboard.
const (
	TTSModeLocal = "local"
	TTSModeCloud = "cloud"
)

// Template kinds. A static template carries its own artwork and needs no
// generated image; image- and video-driven templates expect one.
const (
	TemplateStatic = "static"
	TemplateImage  = "image"
	TemplateVideo  = "video"
)

// StoryboardConfig is the canonical, fully-resolved parameter set for one
// task. It is built exactly once by the orchestrator; deprecated parameter
// spellings and config defaults are already folded in by the time a config
// reaches deeper layers.
type StoryboardConfig struct {
	TaskID string `json:"task_id"`

	NScenes             int `json:"n_scenes"`
	MinNarrationWords   int `json:"min_narration_words"`
	MaxNarrationWords   int `json:"max_narration_words"`
	MinImagePromptWords int `json:"min_image_prompt_words"`
	MaxImagePromptWords int `json:"max_image_prompt_words"`

	VideoFPS int `json:"video_fps"`

	// Audio
	TTSMode     string  `json:"tts_mode"` // TTSModeLocal or TTSModeCloud
	Voice       string  `json:"voice,omitempty"`
	TTSWorkflow string  `json:"tts_workflow,omitempty"`
	TTSSpeed    float64 `json:"tts_speed,omitempty"`
	RefAudio    string  `json:"ref_audio,omitempty"` // voice cloning reference (cloud only)

	// Image
	ImageWidth    int    `json:"image_width"`
	ImageHeight   int    `json:"image_height"`
	ImageWorkflow string `json:"image_workflow,omitempty"`

	// Frame template (size is embedded in the template path)
	FrameTemplate  string         `json:"frame_template"`
	TemplateKind   string         `json:"template_kind"`
	TemplateParams map[string]any `json:"template_params,omitempty"`
}

// StoryboardFrame is one narration+image+audio+video unit. Artifact paths
// are filled in progressively; a path is only set once its stage succeeded.
type StoryboardFrame struct {
	Index       int     `json:"index"`
	Narration   string  `json:"narration"`
	ImagePrompt *string `json:"image_prompt"` // nil when the template is static

	AudioPath        string `json:"audio_path,omitempty"`
	ImagePath        string `json:"image_path,omitempty"`
	ComposedPath     string `json:"composed_image_path,omitempty"`
	VideoSegmentPath string `json:"video_segment_path,omitempty"`

	Duration  float64   `json:"duration"` // audio duration in seconds, 0 until the audio stage completes
	CreatedAt time.Time `json:"created_at"`
}

// ContentMetadata carries display fields merged into template rendering.
type ContentMetadata struct {
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Genre    string `json:"genre,omitempty"`
}

// Storyboard is the complete ordered set of frames plus task-level metadata
// for one video.
type Storyboard struct {
	Title  string           `json:"title"`
	Config StoryboardConfig `json:"config"`
	Frames []*StoryboardFrame `json:"frames"`

	ContentMetadata *ContentMetadata `json:"content_metadata,omitempty"`

	FinalVideoPath string  `json:"final_video_path,omitempty"`
	TotalDuration  float64 `json:"total_duration"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// IsCompleted reports whether every frame has a rendered video segment.
func (s *Storyboard) IsCompleted() bool {
	if len(s.Frames) == 0 {
		return false
	}
	for _, f := range s.Frames {
		if f.VideoSegmentPath == "" {
			return false
		}
	}
	return true
}

// Progress returns the completed-frame fraction in [0,1].
func (s *Storyboard) Progress() float64 {
	if len(s.Frames) == 0 {
		return 0
	}
	done := 0
	for _, f := range s.Frames {
		if f.VideoSegmentPath != "" {
			done++
		}
	}
	return float64(done) / float64(len(s.Frames))
}

// VideoGenerationResult is the terminal artifact of one generate() call.
type VideoGenerationResult struct {
	VideoPath  string      `json:"video_path"`
	Storyboard *Storyboard `json:"storyboard"`
	Duration   float64     `json:"duration"`
	FileSize   int64       `json:"file_size"`
	CreatedAt  time.Time   `json:"created_at"`
}
