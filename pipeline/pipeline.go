// Package pipeline orchestrates the full text-to-video flow: content
// generation, per-frame processing, final assembly, and delivery.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"storyreel/config"
	"storyreel/frame"
	"storyreel/media"
	"storyreel/progress"
	"storyreel/resources"
	"storyreel/speech"
	"storyreel/taskdir"
	"storyreel/types"
)

// NarrationRequest asks the content generator for a storyboard's
// narration lines.
type NarrationRequest struct {
	Text     string
	NScenes  int
	MinWords int
	MaxWords int
}

// PromptRequest asks for one image prompt per narration line.
// Implementations should call Progress with completed/total as prompts
// land; it may be nil.
type PromptRequest struct {
	Narrations []string
	MinWords   int
	MaxWords   int
	Progress   func(done float64)
}

// ContentGenerator is the LLM boundary. Implementations live outside
// this module.
type ContentGenerator interface {
	// GenerateTitle derives a title using the given strategy: TitleAuto
	// extracts one from the text directly, TitleLLM writes a fresh one.
	GenerateTitle(ctx context.Context, text, strategy string) (string, error)
	GenerateNarration(ctx context.Context, req NarrationRequest) ([]string, error)
	GenerateImagePrompts(ctx context.Context, req PromptRequest) ([]string, error)
}

// Store persists storyboards. Persistence is best effort: failures are
// logged and never fail a task.
type Store interface {
	SaveStoryboard(ctx context.Context, sb *types.Storyboard) error
}

// FrameProcessor runs all stages for one frame. frame.Processor
// satisfies it.
type FrameProcessor interface {
	Process(ctx context.Context, cfg *types.StoryboardConfig, fr *types.StoryboardFrame, meta *types.ContentMetadata, rep frame.Reporter) error
}

// Pipeline wires the generation stages together. All fields except
// Store and Sink are required.
type Pipeline struct {
	Cfg      *config.Config
	Content  ContentGenerator
	Frames   FrameProcessor
	Media    *media.Engine
	Resolver *resources.Resolver
	Store    Store
	Sink     progress.Sink
}

// Generate runs one end-to-end video generation task. Errors from any
// stage are logged and returned unchanged.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*types.VideoGenerationResult, error) {
	res, err := p.generate(ctx, req)
	if err != nil {
		log.Printf("[pipeline] task failed: %v", err)
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, req Request) (*types.VideoGenerationResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("empty input text")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeGenerate
	}
	if mode != ModeGenerate && mode != ModeFixed {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	tracker := progress.NewTracker(p.Sink)

	taskDir, taskID, err := taskdir.Create(p.Cfg.Paths.Output)
	if err != nil {
		return nil, err
	}
	log.Printf("[pipeline] task %s started (%s mode)", taskID, mode)

	cfg, err := p.buildConfig(&req, taskID)
	if err != nil {
		return nil, err
	}

	title, err := p.resolveTitle(ctx, &req, mode)
	if err != nil {
		return nil, err
	}
	tracker.Title(title)

	narrations, err := p.resolveNarrations(ctx, &req, mode)
	if err != nil {
		return nil, err
	}
	if len(narrations) == 0 {
		return nil, fmt.Errorf("no narration lines produced")
	}
	tracker.Narration(fmt.Sprintf("%d frames", len(narrations)))

	sb := &types.Storyboard{
		Title:           title,
		Config:          *cfg,
		ContentMetadata: req.Metadata,
		CreatedAt:       time.Now(),
	}
	for i, n := range narrations {
		sb.Frames = append(sb.Frames, &types.StoryboardFrame{
			Index:     i,
			Narration: n,
			CreatedAt: time.Now(),
		})
	}

	// Static templates need no generated imagery, so prompt generation
	// is skipped outright and its progress share moves to the frames.
	if cfg.TemplateKind == types.TemplateStatic {
		tracker.FoldImagePrompts()
	} else {
		if err := p.fillImagePrompts(ctx, &req, cfg, sb, tracker); err != nil {
			return nil, err
		}
	}

	if err := p.processFrames(ctx, cfg, sb, tracker); err != nil {
		return nil, err
	}

	finalPath, err := p.assemble(ctx, &req, taskID, sb, tracker)
	if err != nil {
		return nil, err
	}

	sb.FinalVideoPath = finalPath
	sb.CompletedAt = time.Now()
	for _, f := range sb.Frames {
		sb.TotalDuration += f.Duration
	}

	p.persist(ctx, taskDir, sb)

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat final video: %w", err)
	}

	tracker.Done(finalPath)
	log.Printf("[pipeline] task %s done: %s (%.1fs, %d bytes)",
		taskID, finalPath, sb.TotalDuration, info.Size())

	return &types.VideoGenerationResult{
		VideoPath:  finalPath,
		Storyboard: sb,
		Duration:   sb.TotalDuration,
		FileSize:   info.Size(),
		CreatedAt:  time.Now(),
	}, nil
}

// buildConfig folds request values, deprecated spellings, and config
// defaults into the one canonical StoryboardConfig for the task.
func (p *Pipeline) buildConfig(req *Request, taskID string) (*types.StoryboardConfig, error) {
	tmpl, err := p.Resolver.ResolveTemplate(req.Template)
	if err != nil {
		return nil, err
	}

	ttsMode, voice, ttsWorkflow, speed := resolveTTS(req, p.Cfg)

	if ttsMode == speech.ModeCloud {
		wf, err := p.Resolver.ResolveWorkflow(resources.PrefixTTS, ttsWorkflow, p.Cfg.TTS.DefaultWorkflow)
		if err != nil {
			return nil, err
		}
		ttsWorkflow = wf.Key
	}

	imageWorkflow := ""
	if tmpl.Kind != types.TemplateStatic {
		wf, err := p.Resolver.ResolveWorkflow(resources.PrefixImage, req.ImageWorkflow, p.Cfg.Image.DefaultWorkflow)
		if err != nil {
			return nil, err
		}
		imageWorkflow = wf.Key
	}

	cfg := &types.StoryboardConfig{
		TaskID:              taskID,
		NScenes:             req.NScenes,
		MinNarrationWords:   req.MinNarrationWords,
		MaxNarrationWords:   req.MaxNarrationWords,
		MinImagePromptWords: req.MinImagePromptWords,
		MaxImagePromptWords: req.MaxImagePromptWords,
		VideoFPS:            p.Cfg.Video.FPS,
		TTSMode:             ttsMode,
		Voice:               voice,
		TTSWorkflow:         ttsWorkflow,
		TTSSpeed:            speed,
		RefAudio:            req.RefAudio,
		ImageWidth:          p.Cfg.Image.Width,
		ImageHeight:         p.Cfg.Image.Height,
		ImageWorkflow:       imageWorkflow,
		FrameTemplate:       tmpl.Size + "/" + filepath.Base(tmpl.Path),
		TemplateKind:        tmpl.Kind,
		TemplateParams:      req.TemplateParams,
	}
	if cfg.NScenes <= 0 {
		cfg.NScenes = 5
	}
	return cfg, nil
}

func (p *Pipeline) resolveNarrations(ctx context.Context, req *Request, mode string) ([]string, error) {
	if mode == ModeFixed {
		// Every non-empty line is one frame. NScenes is ignored here.
		return splitFixedLines(req.Text), nil
	}
	nScenes := req.NScenes
	if nScenes <= 0 {
		nScenes = 5
	}
	lines, err := p.Content.GenerateNarration(ctx, NarrationRequest{
		Text:     req.Text,
		NScenes:  nScenes,
		MinWords: req.MinNarrationWords,
		MaxWords: req.MaxNarrationWords,
	})
	if err != nil {
		return nil, fmt.Errorf("generate narration: %w", err)
	}
	return lines, nil
}

func (p *Pipeline) fillImagePrompts(ctx context.Context, req *Request, cfg *types.StoryboardConfig, sb *types.Storyboard, tracker *progress.Tracker) error {
	narrations := make([]string, len(sb.Frames))
	for i, f := range sb.Frames {
		narrations[i] = f.Narration
	}
	prompts, err := p.Content.GenerateImagePrompts(ctx, PromptRequest{
		Narrations: narrations,
		MinWords:   cfg.MinImagePromptWords,
		MaxWords:   cfg.MaxImagePromptWords,
		Progress: func(done float64) {
			tracker.ImagePrompts(done, "")
		},
	})
	if err != nil {
		return fmt.Errorf("generate image prompts: %w", err)
	}
	if len(prompts) != len(sb.Frames) {
		return fmt.Errorf("generate image prompts: got %d for %d frames", len(prompts), len(sb.Frames))
	}

	prefix := req.PromptPrefix
	if prefix == "" {
		prefix = p.Cfg.Image.PromptPrefix
	}
	for i, f := range sb.Frames {
		prompt := prompts[i]
		if prefix != "" {
			prompt = prefix + " " + prompt
		}
		f.ImagePrompt = &prompt
	}
	tracker.ImagePrompts(1.0, fmt.Sprintf("%d prompts", len(prompts)))
	return nil
}

// processFrames runs every frame through the processor. When any
// resolved workflow is cloud hosted the frames fan out under a bounded
// errgroup; otherwise they run in order, one at a time. Results attach
// by frame index, so completion order never affects assembly order.
func (p *Pipeline) processFrames(ctx context.Context, cfg *types.StoryboardConfig, sb *types.Storyboard, tracker *progress.Tracker) error {
	reporters := tracker.Frames(len(sb.Frames))

	limit := 1
	if p.cloudHosted(cfg) {
		limit = p.Cfg.Pipeline.MaxParallelFrames
		if limit < 1 {
			limit = 1
		}
	}

	if limit == 1 {
		for i, f := range sb.Frames {
			if err := p.Frames.Process(ctx, cfg, f, sb.ContentMetadata, reporters[i]); err != nil {
				return err
			}
			reporters[i].Done(f.VideoSegmentPath)
		}
		return nil
	}

	// A failed frame fails the task, but siblings already running are
	// left to finish; the parent ctx is the only cancellation source.
	log.Printf("[pipeline] processing %d frames, %d in parallel", len(sb.Frames), limit)
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range sb.Frames {
		f := sb.Frames[i]
		rep := reporters[i]
		g.Go(func() error {
			if err := p.Frames.Process(ctx, cfg, f, sb.ContentMetadata, rep); err != nil {
				return err
			}
			rep.Done(f.VideoSegmentPath)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) cloudHosted(cfg *types.StoryboardConfig) bool {
	for _, key := range []string{cfg.TTSWorkflow, cfg.ImageWorkflow} {
		if strings.HasPrefix(key, resources.SourceRunningHub+"/") {
			return true
		}
	}
	return false
}

// assemble concatenates the segments, mixes BGM when requested, and
// copies the result to the external path if one was given.
func (p *Pipeline) assemble(ctx context.Context, req *Request, taskID string, sb *types.Storyboard, tracker *progress.Tracker) (string, error) {
	tracker.Concat(0, "assembling")

	segments := make([]string, len(sb.Frames))
	for i, f := range sb.Frames {
		segments[i] = f.VideoSegmentPath
	}

	var opts media.ConcatOptions
	if req.BGM != "" {
		bgmPath, err := p.Resolver.ResolveBGM(req.BGM)
		if err != nil {
			return "", err
		}
		opts.BGMPath = bgmPath
		opts.BGMVolume = p.Cfg.BGM.Volume
		opts.BGMOnce = p.Cfg.BGM.Mode == "once"
	}

	finalPath := taskdir.FinalVideoPath(p.Cfg.Paths.Output, taskID)
	if err := p.Media.ConcatVideos(ctx, segments, finalPath, opts); err != nil {
		return "", err
	}
	tracker.Concat(1.0, finalPath)

	if req.OutputPath != "" {
		if err := copyOut(finalPath, req.OutputPath); err != nil {
			return "", err
		}
		return req.OutputPath, nil
	}
	return finalPath, nil
}

// persist saves the storyboard through the store and drops a metadata
// summary next to the video. Both are best effort.
func (p *Pipeline) persist(ctx context.Context, taskDir string, sb *types.Storyboard) {
	if p.Store != nil {
		if err := p.Store.SaveStoryboard(ctx, sb); err != nil {
			log.Printf("[pipeline] storyboard persistence failed (ignored): %v", err)
		}
	}
	if err := writeTaskMetadata(taskDir, sb); err != nil {
		log.Printf("[pipeline] metadata write failed (ignored): %v", err)
	}
}

func copyOut(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy to output path: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("copy to output path: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy to output path: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to output path: %w", err)
	}
	return out.Close()
}
