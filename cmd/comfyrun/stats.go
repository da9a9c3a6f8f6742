package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gpgcheck/comfyui-api/client"
)

var statsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show system statistics of the ComfyUI server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := client.NewComfyClient(cfg)
		if err != nil {
			return err
		}
		stats, err := c.GetSystemStats()
		if err != nil {
			return err
		}

		fmt.Printf("server: %s\n", cfg.ServerAddress)
		fmt.Printf("os: %s  python: %s\n", stats.System.OS, stats.System.PythonVersion)
		for _, d := range stats.Devices {
			fmt.Printf("  [%d] %s (%s)  vram %s free / %s total\n",
				d.Index, d.Name, d.Type, mib(d.VRAMFree), mib(d.VRAMTotal))
		}
		return nil
	},
}

func mib(bytes int64) string {
	return fmt.Sprintf("%.0f MiB", float64(bytes)/(1<<20))
}
