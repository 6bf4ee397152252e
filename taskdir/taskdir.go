// Package taskdir manages the isolated on-disk working directory owned by a
// single video generation task.
//
// Layout:
//
//	output/<taskId>/
//	├── final.mp4
//	├── frames/
//	│   ├── 01_audio.mp3
//	│   ├── 01_image.png
//	│   ├── 01_composed.png
//	│   ├── 01_segment.mp4
//	│   └── ...
//	└── metadata.json
package taskdir

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Frame artifact kinds.
const (
	KindAudio    = "audio"
	KindImage    = "image"
	KindComposed = "composed"
	KindSegment  = "segment"
)

var frameExt = map[string]string{
	KindAudio:    "mp3",
	KindImage:    "png",
	KindComposed: "png",
	KindSegment:  "mp4",
}

// NewTaskID returns a timestamp-plus-random-suffix id, e.g.
// "20260831_143052_ab3d". The suffix keeps same-second collisions negligible.
func NewTaskID() string {
	return fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:4])
}

// Create allocates the task directory (including frames/) under outputRoot
// and returns its path together with the task id.
func Create(outputRoot string) (dir string, taskID string, err error) {
	taskID = NewTaskID()
	dir = filepath.Join(outputRoot, taskID)
	if err := os.MkdirAll(filepath.Join(dir, "frames"), 0755); err != nil {
		return "", "", fmt.Errorf("create task dir: %w", err)
	}
	return dir, taskID, nil
}

// Path joins parts under the task directory.
func Path(outputRoot, taskID string, parts ...string) string {
	return filepath.Join(append([]string{outputRoot, taskID}, parts...)...)
}

// FramePath returns the artifact path for one frame stage. The frame index
// is 0-based; filenames start at 01 for readability.
func FramePath(outputRoot, taskID string, frameIndex int, kind string) string {
	ext, ok := frameExt[kind]
	if !ok {
		ext = "bin"
	}
	name := fmt.Sprintf("%02d_%s.%s", frameIndex+1, kind, ext)
	return Path(outputRoot, taskID, "frames", name)
}

// FinalVideoPath returns the canonical final video slot for a task.
func FinalVideoPath(outputRoot, taskID string) string {
	return Path(outputRoot, taskID, "final.mp4")
}
