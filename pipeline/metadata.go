package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storyreel/types"
)

// writeTaskMetadata drops a human-readable summary next to the task's
// artifacts.
func writeTaskMetadata(taskDir string, sb *types.Storyboard) error {
	var fileSize int64
	if info, err := os.Stat(sb.FinalVideoPath); err == nil {
		fileSize = info.Size()
	}

	meta := map[string]any{
		"task_id":          sb.Config.TaskID,
		"title":            sb.Title,
		"frame_count":      len(sb.Frames),
		"total_duration":   sb.TotalDuration,
		"final_video_path": sb.FinalVideoPath,
		"file_size":        fileSize,
		"created_at":       sb.CreatedAt.Format(time.RFC3339),
		"completed_at":     sb.CompletedAt.Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(taskDir, "metadata.json"), data, 0644)
}
