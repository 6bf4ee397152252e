package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	TTS      TTSConfig      `yaml:"tts"`
	Image    ImageConfig    `yaml:"image"`
	Video    VideoConfig    `yaml:"video"`
	BGM      BGMConfig      `yaml:"bgm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Backends BackendsConfig `yaml:"backends"`
}

type PathsConfig struct {
	Output string `yaml:"output"` // task output root
	Data   string `yaml:"data"`   // customization root (wins over defaults)
	Bundle string `yaml:"bundle"` // bundled-default resource root
}

type TTSConfig struct {
	InferenceMode   string         `yaml:"inference_mode"` // "local" or "cloud"
	Local           TTSLocalConfig `yaml:"local"`
	DefaultWorkflow string         `yaml:"default_workflow"` // cloud mode, e.g. "selfhost/tts_edge.json"
}

type TTSLocalConfig struct {
	Voice string  `yaml:"voice"`
	Speed float64 `yaml:"speed"`
	// InsecureTLS is threaded into the speech backend at construction.
	// It is never a process-wide toggle.
	InsecureTLS bool `yaml:"insecure_tls"`
}

type ImageConfig struct {
	DefaultWorkflow string `yaml:"default_workflow"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	PromptPrefix    string `yaml:"prompt_prefix"`
}

type VideoConfig struct {
	FPS int `yaml:"fps"`
}

type BGMConfig struct {
	Volume float64 `yaml:"volume"`
	Mode   string  `yaml:"mode"` // "once" or "loop"
}

type PipelineConfig struct {
	MaxParallelFrames int `yaml:"max_parallel_frames"`
}

type BackendsConfig struct {
	ComfyUIURL       string `yaml:"comfyui_url"`
	RunningHubAPIKey string `yaml:"runninghub_api_key"`
}

// Load reads the YAML config file, fills defaults, and applies environment
// overrides (a .env file is honored when present).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// Default returns a config with all defaults and env overrides applied,
// for callers that run without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.Data == "" {
		c.Paths.Data = "data"
	}
	if c.Paths.Bundle == "" {
		c.Paths.Bundle = "."
	}
	if c.TTS.InferenceMode == "" {
		c.TTS.InferenceMode = "local"
	}
	if c.TTS.Local.Voice == "" {
		c.TTS.Local.Voice = "zh-CN-YunjianNeural"
	}
	if c.TTS.Local.Speed == 0 {
		c.TTS.Local.Speed = 1.2
	}
	if c.Image.Width == 0 {
		c.Image.Width = 1024
	}
	if c.Image.Height == 0 {
		c.Image.Height = 1024
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = 30
	}
	if c.BGM.Volume == 0 {
		c.BGM.Volume = 0.2
	}
	if c.BGM.Mode == "" {
		c.BGM.Mode = "loop"
	}
	if c.Pipeline.MaxParallelFrames == 0 {
		c.Pipeline.MaxParallelFrames = 1
	}
	if c.Backends.ComfyUIURL == "" {
		c.Backends.ComfyUIURL = "http://127.0.0.1:8188"
	}
}

func (c *Config) applyEnv() {
	// .env is local-dev convenience only; ignore absence.
	_ = godotenv.Load()

	if v := os.Getenv("COMFYUI_BASE_URL"); v != "" {
		c.Backends.ComfyUIURL = v
	}
	if v := os.Getenv("RUNNINGHUB_API_KEY"); v != "" {
		c.Backends.RunningHubAPIKey = v
	}
}
