package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ConcatOptions tune final assembly.
type ConcatOptions struct {
	// Reencode forces the filter-graph path. The default demuxer path
	// stream-copies, which requires uniformly encoded inputs.
	Reencode bool

	// BGMPath mixes a background track under the result when set.
	BGMPath   string
	BGMVolume float64 // 0..1, defaults to 0.2
	BGMOnce   bool    // play the track once instead of looping
}

// ConcatVideos joins segment files in order into outputPath. A single
// input is copied through byte for byte. When BGM is requested the
// concat result lands in a temp file next to outputPath and the mix
// writes the final; the temp file is removed on every path out.
func (e *Engine) ConcatVideos(ctx context.Context, inputs []string, outputPath string, opts ConcatOptions) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no input segments")
	}

	concatOut := outputPath
	if opts.BGMPath != "" {
		ext := filepath.Ext(outputPath)
		concatOut = strings.TrimSuffix(outputPath, ext) + "_no_bgm" + ext
		defer os.Remove(concatOut)
	}

	if err := e.concat(ctx, inputs, concatOut, opts.Reencode); err != nil {
		return err
	}

	if opts.BGMPath != "" {
		loop := !opts.BGMOnce
		if err := e.addBGM(ctx, concatOut, opts.BGMPath, outputPath, opts.BGMVolume, loop); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) concat(ctx context.Context, inputs []string, outputPath string, reencode bool) error {
	if len(inputs) == 1 {
		log.Printf("[media] single segment, copying to %s", outputPath)
		return copyFile(inputs[0], outputPath)
	}
	if reencode {
		return e.concatFilter(ctx, inputs, outputPath)
	}
	return e.concatDemuxer(ctx, inputs, outputPath)
}

// concatDemuxer stream-copies via the concat demuxer. Fast, but every
// input must share codec parameters.
func (e *Engine) concatDemuxer(ctx context.Context, inputs []string, outputPath string) error {
	listFile := outputPath + ".txt"
	var lines []string
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("concat list: %w", err)
		}
		// The demuxer list is single-quoted; a quote in the path has to
		// be closed, escaped, and reopened.
		abs = strings.ReplaceAll(abs, "'", `'\''`)
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("concat list: %w", err)
	}
	defer os.Remove(listFile)

	return e.ffmpegRun(ctx, "concat",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outputPath,
	)
}

// concatFilter re-encodes through the concat filter, tolerating mixed
// input encodings.
func (e *Engine) concatFilter(ctx context.Context, inputs []string, outputPath string) error {
	var args []string
	var filter strings.Builder
	for i, in := range inputs {
		args = append(args, "-i", in)
		fmt.Fprintf(&filter, "[%d:v][%d:a]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[v][a]", len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	)
	return e.ffmpegRun(ctx, "concat reencode", args...)
}

// AddBGM mixes a background track under the video's narration. The
// track loops for the full video, fades in, and is ducked to volume;
// output length follows the video (duration=first).
func (e *Engine) AddBGM(ctx context.Context, videoPath, bgmPath, outputPath string, volume float64) error {
	return e.addBGM(ctx, videoPath, bgmPath, outputPath, volume, true)
}

func (e *Engine) addBGM(ctx context.Context, videoPath, bgmPath, outputPath string, volume float64, loop bool) error {
	if volume <= 0 || volume > 1 {
		volume = 0.2
	}
	filter := fmt.Sprintf(
		"[1:a]volume=%.2f,afade=t=in:st=0:d=2[bgm];[0:a][bgm]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		volume,
	)
	args := []string{"-i", videoPath}
	if loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args,
		"-i", bgmPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	)
	return e.ffmpegRun(ctx, "add bgm", args...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy segment: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy segment: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy segment: %w", err)
	}
	return out.Close()
}
