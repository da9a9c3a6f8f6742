package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gpgcheck/comfyui-api/config"
)

var (
	serverFlag string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "comfyrun [flags] workflow.json",
		Short: "Run a ComfyUI workflow and collect the generated images",
		Long: `comfyrun loads an API-format ComfyUI workflow, patches selected node
inputs (input images, prompt text, LoRA filename, seed), uploads any local
images it references, submits the workflow, waits for completion over the
event channel, and saves the generated images with timestamped names.

Which nodes receive which parameter is declared per workflow with --bind:

  comfyrun --bind image1=78,image2=106,prompt=111,lora=89,seed=3 \
      --image a.png --image b.png --prompt "merge the two" workflow.json

Server address, API key and TLS policy come from COMFYUI_SERVER_ADDRESS,
COMFYUI_API_KEY and COMFYUI_SSL_VERIFY (a .env file is honored).`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runWorkflow,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "ComfyUI server address including protocol (overrides COMFYUI_SERVER_ADDRESS)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(statsCmd)
}

// loadConfig builds the process configuration once, with the --server flag
// taking precedence over the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		if serverFlag == "" {
			return nil, err
		}
		cfg = &config.Config{}
	}
	if serverFlag != "" {
		cfg.ServerAddress = serverFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func printSaved(saved []string) {
	fmt.Printf("\ngenerated %d image(s):\n", len(saved))
	for _, path := range saved {
		fmt.Printf("  %s\n", path)
	}
}
