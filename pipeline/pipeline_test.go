package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyreel/config"
	"storyreel/frame"
	"storyreel/media"
	"storyreel/progress"
	"storyreel/resources"
	"storyreel/taskdir"
	"storyreel/types"
)

type fakeContent struct {
	title           string
	titleCalls      int
	titleStrategies []string
	narrations      []string
	prompts         []string
	promptCalls     int
}

func (f *fakeContent) GenerateTitle(_ context.Context, _ string, strategy string) (string, error) {
	f.titleCalls++
	f.titleStrategies = append(f.titleStrategies, strategy)
	return f.title, nil
}

func (f *fakeContent) GenerateNarration(_ context.Context, req NarrationRequest) ([]string, error) {
	return f.narrations, nil
}

func (f *fakeContent) GenerateImagePrompts(_ context.Context, req PromptRequest) ([]string, error) {
	f.promptCalls++
	out := f.prompts
	if out == nil {
		out = make([]string, len(req.Narrations))
		for i, n := range req.Narrations {
			out[i] = "art of " + n
		}
	}
	if req.Progress != nil {
		for i := range out {
			req.Progress(float64(i+1) / float64(len(out)))
		}
	}
	return out, nil
}

type fakeStore struct {
	saved []*types.Storyboard
	err   error
}

func (f *fakeStore) SaveStoryboard(_ context.Context, sb *types.Storyboard) error {
	f.saved = append(f.saved, sb)
	return f.err
}

// fakeFrames completes frames in a scripted order and records it.
type fakeFrames struct {
	mu        sync.Mutex
	completed []int
	delays    map[int]time.Duration
	durations map[int]float64
	errs      map[int]error
	outRoot   string
}

func (f *fakeFrames) Process(_ context.Context, cfg *types.StoryboardConfig, fr *types.StoryboardFrame, _ *types.ContentMetadata, _ frame.Reporter) error {
	if d, ok := f.delays[fr.Index]; ok {
		time.Sleep(d)
	}
	if err := f.errs[fr.Index]; err != nil {
		return err
	}
	seg := taskdir.FramePath(f.outRoot, cfg.TaskID, fr.Index, taskdir.KindSegment)
	if err := os.WriteFile(seg, []byte(fmt.Sprintf("segment %d", fr.Index)), 0644); err != nil {
		return err
	}
	fr.VideoSegmentPath = seg
	fr.Duration = f.durations[fr.Index]
	if fr.Duration == 0 {
		fr.Duration = 2.0
	}
	f.mu.Lock()
	f.completed = append(f.completed, fr.Index)
	f.mu.Unlock()
	return nil
}

type env struct {
	p       *Pipeline
	content *fakeContent
	frames  *fakeFrames
	store   *fakeStore
	dflt    string
	out     string
}

func writeRes(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newEnv(t *testing.T) *env {
	t.Helper()
	out := t.TempDir()
	custom := t.TempDir()
	dflt := t.TempDir()

	writeRes(t, filepath.Join(dflt, "templates", "1080x1920", "default.html"), `<img src="{{image}}">`)
	writeRes(t, filepath.Join(dflt, "templates", "1080x1920", "static.html"), `<p>{{narration}}</p>`)
	writeRes(t, filepath.Join(dflt, "workflows", "selfhost", "image_flux.json"), `{}`)
	writeRes(t, filepath.Join(dflt, "workflows", "runninghub", "tts_clone.json"),
		`{"source": "runninghub", "workflow_id": "19034"}`)
	writeRes(t, filepath.Join(dflt, "bgm", "calm.mp3"), "bgmbytes")

	cfg := &config.Config{}
	cfg.Paths.Output = out
	cfg.Paths.Data = custom
	cfg.Paths.Bundle = dflt
	cfg.TTS.InferenceMode = "local"
	cfg.TTS.Local.Voice = "en-US-GuyNeural"
	cfg.TTS.Local.Speed = 1.2
	cfg.Image.Width = 1024
	cfg.Image.Height = 1024
	cfg.Image.DefaultWorkflow = "selfhost/image_flux.json"
	cfg.Video.FPS = 30
	cfg.BGM.Volume = 0.2
	cfg.Pipeline.MaxParallelFrames = 3

	engine := media.New(media.Options{
		Runner: func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
			if strings.Contains(name, "probe") {
				return []byte("2.0"), nil, nil
			}
			if len(args) > 0 {
				_ = os.WriteFile(args[len(args)-1], []byte("final"), 0644)
			}
			return nil, nil, nil
		},
	})

	content := &fakeContent{title: "llm title", narrations: []string{"one", "two", "three"}}
	frames := &fakeFrames{
		outRoot:   out,
		delays:    map[int]time.Duration{},
		durations: map[int]float64{},
		errs:      map[int]error{},
	}
	store := &fakeStore{}

	return &env{
		p: &Pipeline{
			Cfg:      cfg,
			Content:  content,
			Frames:   frames,
			Media:    engine,
			Resolver: resources.New(custom, dflt),
			Store:    store,
		},
		content: content,
		frames:  frames,
		store:   store,
		dflt:    dflt,
		out:     out,
	}
}

func TestGenerateFixedModeOneFramePerLine(t *testing.T) {
	e := newEnv(t)

	res, err := e.p.Generate(context.Background(), Request{
		Text:    "line a\n\n  line b  \nline c\nline d",
		Mode:    ModeFixed,
		NScenes: 9, // ignored in fixed mode
	})
	require.NoError(t, err)

	sb := res.Storyboard
	require.Len(t, sb.Frames, 4)
	assert.Equal(t, "line a", sb.Frames[0].Narration)
	assert.Equal(t, "line b", sb.Frames[1].Narration)
	assert.Equal(t, "line d", sb.Frames[3].Narration)

	// Fixed mode with no explicit title asks for a written one.
	assert.Equal(t, "llm title", sb.Title)
	assert.Equal(t, []string{TitleLLM}, e.content.titleStrategies)
}

func TestGenerateModeUsesGeneratedNarration(t *testing.T) {
	e := newEnv(t)
	e.content.narrations = []string{"n1", "n2"}

	res, err := e.p.Generate(context.Background(), Request{
		Text: "A story about the sea.\nMore text.",
		Mode: ModeGenerate,
	})
	require.NoError(t, err)

	require.Len(t, res.Storyboard.Frames, 2)
	// Generate mode asks the generator for an extracted title.
	assert.Equal(t, "llm title", res.Storyboard.Title)
	assert.Equal(t, []string{TitleAuto}, e.content.titleStrategies)
}

func TestExplicitTitleWins(t *testing.T) {
	e := newEnv(t)

	res, err := e.p.Generate(context.Background(), Request{
		Text:  "some text",
		Mode:  ModeFixed,
		Title: "My Title",
	})
	require.NoError(t, err)
	assert.Equal(t, "My Title", res.Storyboard.Title)
	assert.Equal(t, 0, e.content.titleCalls)
}

func TestTotalDurationIsSumOfFrames(t *testing.T) {
	e := newEnv(t)
	e.frames.durations = map[int]float64{0: 1.5, 1: 3.25, 2: 2.05}

	res, err := e.p.Generate(context.Background(), Request{
		Text: "a\nb\nc",
		Mode: ModeFixed,
	})
	require.NoError(t, err)
	assert.InDelta(t, 6.80, res.Duration, 1e-6)
	assert.InDelta(t, 6.80, res.Storyboard.TotalDuration, 1e-6)
}

func TestStaticTemplateSkipsPromptGeneration(t *testing.T) {
	e := newEnv(t)

	res, err := e.p.Generate(context.Background(), Request{
		Text:     "a\nb",
		Mode:     ModeFixed,
		Template: "static.html",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, e.content.promptCalls)
	for _, f := range res.Storyboard.Frames {
		assert.Nil(t, f.ImagePrompt)
	}
	assert.Equal(t, types.TemplateStatic, res.Storyboard.Config.TemplateKind)
	assert.Empty(t, res.Storyboard.Config.ImageWorkflow)
}

func TestImagePromptsGetPrefix(t *testing.T) {
	e := newEnv(t)
	e.p.Cfg.Image.PromptPrefix = "cinematic,"

	res, err := e.p.Generate(context.Background(), Request{
		Text: "a\nb",
		Mode: ModeFixed,
	})
	require.NoError(t, err)

	for _, f := range res.Storyboard.Frames {
		require.NotNil(t, f.ImagePrompt)
		assert.True(t, strings.HasPrefix(*f.ImagePrompt, "cinematic, art of "), *f.ImagePrompt)
	}
}

func TestParallelCompletionOrderDoesNotReorderFrames(t *testing.T) {
	e := newEnv(t)
	// Cloud TTS workflow turns the fan-out parallel.
	e.p.Cfg.TTS.InferenceMode = "cloud"
	e.p.Cfg.TTS.DefaultWorkflow = "runninghub/tts_clone.json"
	e.frames.delays = map[int]time.Duration{
		0: 60 * time.Millisecond,
		1: 90 * time.Millisecond,
		2: 10 * time.Millisecond,
	}

	res, err := e.p.Generate(context.Background(), Request{
		Text: "a\nb\nc",
		Mode: ModeFixed,
	})
	require.NoError(t, err)

	// Frames completed out of order but reassemble by index.
	assert.Equal(t, []int{2, 0, 1}, e.frames.completed)
	for i, f := range res.Storyboard.Frames {
		assert.Equal(t, i, f.Index)
		assert.Contains(t, f.VideoSegmentPath, fmt.Sprintf("%02d_segment", i+1))
	}
	assert.Equal(t, "runninghub/tts_clone.json", res.Storyboard.Config.TTSWorkflow)
}

func TestFrameFailureDoesNotCancelRunningSiblings(t *testing.T) {
	e := newEnv(t)
	e.p.Cfg.TTS.InferenceMode = "cloud"
	e.p.Cfg.TTS.DefaultWorkflow = "runninghub/tts_clone.json"
	e.frames.errs[0] = errors.New("frame 0 exploded")
	e.frames.delays = map[int]time.Duration{
		1: 40 * time.Millisecond,
		2: 40 * time.Millisecond,
	}

	_, err := e.p.Generate(context.Background(), Request{
		Text: "a\nb\nc",
		Mode: ModeFixed,
	})
	require.Error(t, err)

	// Frames 1 and 2 were already running when 0 failed and must be
	// allowed to finish.
	e.frames.mu.Lock()
	completed := append([]int(nil), e.frames.completed...)
	e.frames.mu.Unlock()
	assert.ElementsMatch(t, []int{1, 2}, completed)
}

func TestImagePromptProgressFeedsPromptStage(t *testing.T) {
	e := newEnv(t)
	var events []progress.Event
	e.p.Sink = func(ev progress.Event) { events = append(events, ev) }

	_, err := e.p.Generate(context.Background(), Request{Text: "a\nb", Mode: ModeFixed})
	require.NoError(t, err)

	// Prompt generation reports fractionally inside its 0.05..0.20
	// slice, not just the terminal value.
	var promptValues []float64
	for _, ev := range events {
		if ev.Stage == "image_prompts" {
			promptValues = append(promptValues, ev.Progress)
		}
	}
	require.GreaterOrEqual(t, len(promptValues), 3)
	assert.InDelta(t, 0.125, promptValues[0], 1e-9) // 1 of 2 prompts
	assert.InDelta(t, 0.20, promptValues[len(promptValues)-1], 1e-9)
}

func TestPersistenceFailureDoesNotFailTask(t *testing.T) {
	e := newEnv(t)
	e.store.err = errors.New("db down")

	res, err := e.p.Generate(context.Background(), Request{Text: "a\nb", Mode: ModeFixed})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, e.store.saved, 1)

	// metadata.json still written next to the artifacts.
	_, statErr := os.Stat(filepath.Join(e.out, res.Storyboard.Config.TaskID, "metadata.json"))
	assert.NoError(t, statErr)
}

func TestOutputPathCopyOut(t *testing.T) {
	e := newEnv(t)
	// Parent directories of the external path are created on demand.
	dst := filepath.Join(t.TempDir(), "videos", "august", "mine.mp4")

	res, err := e.p.Generate(context.Background(), Request{
		Text:       "a\nb",
		Mode:       ModeFixed,
		OutputPath: dst,
	})
	require.NoError(t, err)
	assert.Equal(t, dst, res.VideoPath)

	// Task dir keeps its own copy.
	internal := taskdir.FinalVideoPath(e.out, res.Storyboard.Config.TaskID)
	want, err := os.ReadFile(internal)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMissingBGMFailsWithTrackListing(t *testing.T) {
	e := newEnv(t)

	_, err := e.p.Generate(context.Background(), Request{
		Text: "a\nb",
		Mode: ModeFixed,
		BGM:  "missing.mp3",
	})
	var nf *resources.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Candidates, "calm.mp3")
}

func TestEmptyTextRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.p.Generate(context.Background(), Request{Text: "   \n  "})
	assert.Error(t, err)
}

func TestDeprecatedVoiceIDNormalization(t *testing.T) {
	e := newEnv(t)

	res, err := e.p.Generate(context.Background(), Request{
		Text:    "a",
		Mode:    ModeFixed,
		VoiceID: "en-GB-RyanNeural",
	})
	require.NoError(t, err)
	cfg := res.Storyboard.Config
	assert.Equal(t, types.TTSModeLocal, cfg.TTSMode)
	assert.Equal(t, "en-GB-RyanNeural", cfg.Voice)

	res, err = e.p.Generate(context.Background(), Request{
		Text:    "a",
		Mode:    ModeFixed,
		VoiceID: "runninghub/tts_clone.json",
	})
	require.NoError(t, err)
	cfg = res.Storyboard.Config
	assert.Equal(t, types.TTSModeCloud, cfg.TTSMode)
	assert.Equal(t, "runninghub/tts_clone.json", cfg.TTSWorkflow)
}

func TestProgressReachesTerminal(t *testing.T) {
	e := newEnv(t)
	var events []progress.Event
	e.p.Sink = func(ev progress.Event) { events = append(events, ev) }

	_, err := e.p.Generate(context.Background(), Request{Text: "a\nb", Mode: ModeFixed})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	var last float64
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
	}
	assert.Equal(t, 1.0, events[len(events)-1].Progress)
	assert.Equal(t, "done", events[len(events)-1].Stage)
}
