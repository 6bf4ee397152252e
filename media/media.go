// Package media composes audio, images, and video segments into final
// output through the ffmpeg and ffprobe binaries.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes an external command and returns its captured output.
// Injectable for tests.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// CompositionError reports a failed ffmpeg/ffprobe invocation with the
// tool's stderr preserved verbatim.
type CompositionError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *CompositionError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *CompositionError) Unwrap() error { return e.Err }

// Engine wraps the ffmpeg toolchain. The zero value is not usable;
// construct with New.
type Engine struct {
	run    Runner
	ffmpeg string
	probe  string
}

// Options tune an Engine. Zero values select defaults.
type Options struct {
	Runner     Runner
	FFmpegBin  string
	FFprobeBin string
}

// New builds an Engine.
func New(opts Options) *Engine {
	run := opts.Runner
	if run == nil {
		run = execRunner
	}
	ffmpeg := opts.FFmpegBin
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	probe := opts.FFprobeBin
	if probe == "" {
		probe = "ffprobe"
	}
	return &Engine{run: run, ffmpeg: ffmpeg, probe: probe}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (e *Engine) ffmpegRun(ctx context.Context, op string, args ...string) error {
	full := append([]string{"-y"}, args...)
	_, stderr, err := e.run(ctx, e.ffmpeg, full...)
	if err != nil {
		return &CompositionError{Op: op, Stderr: strings.TrimSpace(string(stderr)), Err: err}
	}
	return nil
}

// ProbeDuration returns the media duration in seconds. When ffprobe is
// unavailable or cannot parse the file, the duration is estimated from
// the file size at roughly 2000 bytes per second, floored at one
// second, so downstream timing never gets a zero.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	stdout, _, err := e.run(ctx, e.probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err == nil {
		if dur, perr := strconv.ParseFloat(strings.TrimSpace(string(stdout)), 64); perr == nil && dur > 0 {
			return dur, nil
		}
	}
	return estimateDuration(path)
}

func estimateDuration(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	dur := float64(info.Size()) / 2000.0
	if dur < 1.0 {
		dur = 1.0
	}
	return dur, nil
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
