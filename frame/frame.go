// Package frame turns one storyboard frame into a finished video
// segment: narration audio, generated image, composed frame, segment.
package frame

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"storyreel/media"
	"storyreel/speech"
	"storyreel/taskdir"
	"storyreel/types"
)

// ImageRequest describes one image synthesis job.
type ImageRequest struct {
	Prompt   string
	Width    int
	Height   int
	Workflow string
}

// ImageBackend produces a frame illustration and returns where to fetch
// it: an http(s) URL or a local file path.
type ImageBackend interface {
	Generate(ctx context.Context, req ImageRequest) (string, error)
}

// ComposeRequest describes one template composition job.
type ComposeRequest struct {
	Template   string // template file reference, resolver spelling
	Params     map[string]any
	Narration  string
	ImagePath  string // empty for static templates
	Metadata   *types.ContentMetadata
	OutputPath string
}

// Composer renders a frame template into a composed image at
// OutputPath.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) error
}

// Reporter receives fractional progress for one frame.
// progress.FrameReporter satisfies it.
type Reporter interface {
	Step(done float64, step, detail string)
}

type nopReporter struct{}

func (nopReporter) Step(float64, string, string) {}

// Stage offsets within one frame's progress span.
const (
	stageAudio   = 0.0
	stageImage   = 0.25
	stageCompose = 0.5
	stageSegment = 0.75
)

// Processor runs the per-frame stages in order. All collaborators are
// required except HTTPClient, which defaults to a 60s-timeout client.
type Processor struct {
	Speech     speech.Synthesizer
	Images     ImageBackend
	Composer   Composer
	Media      *media.Engine
	HTTPClient *http.Client
	OutputRoot string
}

func (p *Processor) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// Process runs all stages for one frame, filling in the frame's
// artifact paths and duration as each stage lands. rep may be nil.
func (p *Processor) Process(ctx context.Context, cfg *types.StoryboardConfig, fr *types.StoryboardFrame, meta *types.ContentMetadata, rep Reporter) error {
	if rep == nil {
		rep = nopReporter{}
	}

	// Audio
	rep.Step(stageAudio, "audio", "synthesizing narration")
	audioPath := taskdir.FramePath(p.OutputRoot, cfg.TaskID, fr.Index, taskdir.KindAudio)
	err := p.Speech.Synthesize(ctx, speech.Request{
		Text:       fr.Narration,
		Mode:       cfg.TTSMode,
		Voice:      cfg.Voice,
		Speed:      cfg.TTSSpeed,
		Workflow:   cfg.TTSWorkflow,
		RefAudio:   cfg.RefAudio,
		OutputPath: audioPath,
	})
	if err != nil {
		return fmt.Errorf("frame %d audio: %w", fr.Index, err)
	}
	fr.AudioPath = audioPath

	// Image. Static templates carry their own artwork, so the backend
	// is never invoked and no raw image artifact exists.
	rep.Step(stageImage, "image", "generating image")
	if cfg.TemplateKind != types.TemplateStatic && fr.ImagePrompt != nil {
		imagePath := taskdir.FramePath(p.OutputRoot, cfg.TaskID, fr.Index, taskdir.KindImage)
		if err := p.generateImage(ctx, cfg, *fr.ImagePrompt, imagePath); err != nil {
			return fmt.Errorf("frame %d image: %w", fr.Index, err)
		}
		fr.ImagePath = imagePath
	}

	// Composition
	rep.Step(stageCompose, "compose", "composing frame")
	composedPath := taskdir.FramePath(p.OutputRoot, cfg.TaskID, fr.Index, taskdir.KindComposed)
	err = p.Composer.Compose(ctx, ComposeRequest{
		Template:   cfg.FrameTemplate,
		Params:     cfg.TemplateParams,
		Narration:  fr.Narration,
		ImagePath:  fr.ImagePath,
		Metadata:   meta,
		OutputPath: composedPath,
	})
	if err != nil {
		return fmt.Errorf("frame %d compose: %w", fr.Index, err)
	}
	fr.ComposedPath = composedPath

	// Segment
	rep.Step(stageSegment, "segment", "rendering segment")
	segmentPath := taskdir.FramePath(p.OutputRoot, cfg.TaskID, fr.Index, taskdir.KindSegment)
	duration, err := p.Media.VideoFromImage(ctx, composedPath, audioPath, segmentPath, cfg.VideoFPS)
	if err != nil {
		return fmt.Errorf("frame %d segment: %w", fr.Index, err)
	}
	fr.VideoSegmentPath = segmentPath
	fr.Duration = duration

	log.Printf("[frame] %d done (%.2fs)", fr.Index+1, duration)
	return nil
}

func (p *Processor) generateImage(ctx context.Context, cfg *types.StoryboardConfig, prompt, destPath string) error {
	ref, err := p.Images.Generate(ctx, ImageRequest{
		Prompt:   prompt,
		Width:    cfg.ImageWidth,
		Height:   cfg.ImageHeight,
		Workflow: cfg.ImageWorkflow,
	})
	if err != nil {
		return err
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return p.download(ctx, ref, destPath)
	}
	return copyLocal(ref, destPath)
}

func (p *Processor) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download image: unexpected status %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	return out.Close()
}

func copyLocal(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	return out.Close()
}
