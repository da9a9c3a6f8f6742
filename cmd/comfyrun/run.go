package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gpgcheck/comfyui-api/client"
	"github.com/gpgcheck/comfyui-api/workflow"
)

var (
	outputDir   string
	inputDir    string
	promptFlag  string
	loraFlag    string
	seedFlag    int64
	timeoutFlag int
	imageFlags  []string
	bindFlags   []string
	dryRun      bool
)

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "output", "directory for generated images (created if absent)")
	rootCmd.Flags().StringVar(&inputDir, "input-dir", "input_images", "directory scanned for input images when fewer --image flags than image bindings are given")
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "edit prompt (default: COMFYUI_PROMPT env var or workflow default)")
	rootCmd.Flags().StringVar(&loraFlag, "lora", "", "LoRA filename to patch into the workflow")
	rootCmd.Flags().Int64Var(&seedFlag, "seed", -1, "sampler seed; negative picks a random seed per run")
	rootCmd.Flags().IntVarP(&timeoutFlag, "timeout", "t", 300, "seconds to wait for workflow completion")
	rootCmd.Flags().StringArrayVarP(&imageFlags, "image", "i", nil, "local input image, repeatable; matched to image bindings in order")
	rootCmd.Flags().StringArrayVarP(&bindFlags, "bind", "b", nil, "logical parameter to node id binding, e.g. image1=78 or prompt=111 (repeatable, comma-separable)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "patch the workflow and print it without contacting the server")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	wf, err := workflow.Load(args[0])
	if err != nil {
		return err
	}
	binds, err := workflow.ParseBindings(bindFlags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompt := promptFlag
	if prompt == "" {
		prompt = cfg.Prompt
	}
	var seed *int64
	if seedFlag >= 0 {
		s := seedFlag
		seed = &s
	}
	params := workflow.Params{
		Images: fillImages(imageFlags, len(binds.ImageNodes()), inputDir),
		Prompt: prompt,
		LoRA:   loraFlag,
		Seed:   seed,
	}

	if dryRun {
		// offline inspection: image inputs get local basenames, no upload
		if err := binds.Apply(wf, params, nil); err != nil {
			return err
		}
		out, err := json.MarshalIndent(wf, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	c, err := client.NewComfyClient(cfg)
	if err != nil {
		return err
	}
	if c.PingServer() {
		fmt.Printf("connected to ComfyUI server at %s\n", cfg.ServerAddress)
	}

	var bar *progressbar.ProgressBar
	c.OnProgress = func(value, max int) {
		if bar == nil || bar.GetMax() != max {
			bar = progressbar.Default(int64(max), "executing")
		}
		bar.Set(value)
	}

	if err := binds.Apply(wf, params, c); err != nil {
		return err
	}

	saved, err := c.RunAndCollect(wf, outputDir, time.Duration(timeoutFlag)*time.Second)
	if err != nil {
		return err
	}
	printSaved(saved)
	return nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// fillImages tops up the explicit --image list from a directory scan until
// every image binding has a path, matching the sorted order of the folder.
func fillImages(explicit []string, wanted int, dir string) []string {
	need := wanted - len(explicit)
	if need <= 0 || dir == "" {
		return explicit
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("input image directory not readable", "dir", dir, "error", err)
		return explicit
	}

	images := explicit
	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(found)
	for _, path := range found {
		if need == 0 {
			break
		}
		slog.Info("using input image", "file", filepath.Base(path))
		images = append(images, path)
		need--
	}
	if need > 0 {
		slog.Warn("not enough input images for the declared image bindings", "missing", need)
	}
	return images
}
