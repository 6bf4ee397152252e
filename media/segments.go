package media

import (
	"context"
	"fmt"
	"log"
)

// VideoFromImage renders a still image plus its narration audio into a
// video segment. The segment duration is pinned to the probed audio
// duration so concatenated timing always matches the narration.
func (e *Engine) VideoFromImage(ctx context.Context, imagePath, audioPath, outputPath string, fps int) (float64, error) {
	duration, err := e.ProbeDuration(ctx, audioPath)
	if err != nil {
		return 0, fmt.Errorf("segment audio duration: %w", err)
	}

	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-t", formatSeconds(duration),
		"-r", fmt.Sprintf("%d", fps),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-b:v", "2M",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	}
	if err := e.ffmpegRun(ctx, "image to video", args...); err != nil {
		return 0, err
	}

	log.Printf("[media] segment %s (%.2fs)", outputPath, duration)
	return duration, nil
}

// Merge modes for MergeAudioVideo.
const (
	MergeReplace = "replace"
	MergeMix     = "mix"
)

// MergeAudioVideo lays an audio track onto a video. MergeReplace drops
// the video's own audio; MergeMix blends the two.
func (e *Engine) MergeAudioVideo(ctx context.Context, videoPath, audioPath, outputPath, mode string) error {
	var args []string
	switch mode {
	case MergeMix:
		args = []string{
			"-i", videoPath,
			"-i", audioPath,
			"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=first[aout]",
			"-map", "0:v",
			"-map", "[aout]",
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "192k",
			outputPath,
		}
	case MergeReplace, "":
		args = []string{
			"-i", videoPath,
			"-i", audioPath,
			"-map", "0:v",
			"-map", "1:a",
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "192k",
			"-shortest",
			outputPath,
		}
	default:
		return fmt.Errorf("unknown merge mode %q", mode)
	}
	return e.ffmpegRun(ctx, "merge audio video", args...)
}
