package client

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gpgcheck/comfyui-api/workflow"
)

// RunAndCollect submits the workflow, waits for it to finish, then downloads
// every image recorded in history for the prompt into outputDir, naming each
// file {stem}_{YYYYMMDD_HHMMSS}{ext}. It returns the saved paths in history
// order: nodes as the server listed them, then images as listed per node.
//
// A prompt with no image outputs yields an empty slice, not an error. Any
// failure aborts the whole run; files written before the failure are left on
// disk but the run still reports the error.
func (c *ComfyClient) RunAndCollect(w workflow.Workflow, outputDir string, timeout time.Duration) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	promptID, err := c.QueuePrompt(w)
	if err != nil {
		return nil, err
	}
	slog.Info("prompt queued", "prompt_id", promptID)

	if _, err := c.WaitForCompletion(promptID, timeout); err != nil {
		return nil, err
	}

	history, err := c.GetHistory(promptID)
	if err != nil {
		return nil, err
	}

	saved := []string{}
	entry, ok := history[promptID]
	if !ok {
		return saved, nil
	}

	for _, nodeID := range entry.Outputs.Order {
		for _, ref := range entry.Outputs.Nodes[nodeID].Images {
			data, err := c.GetImage(ref)
			if err != nil {
				return nil, err
			}
			path := filepath.Join(outputDir, timestampedName(ref.Filename, time.Now()))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return nil, fmt.Errorf("saving %s: %w", ref.Filename, err)
			}
			slog.Info("saved image", "node", nodeID, "path", path)
			saved = append(saved, path)
		}
	}
	return saved, nil
}

// timestampedName inserts a second-resolution timestamp between the stem and
// the extension: out.png becomes out_20260824_153012.png.
func timestampedName(filename string, t time.Time) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%s%s", stem, t.Format("20060102_150405"), ext)
}
