package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crosscore/cloud-ocr-summarizer/internal/config"
	"github.com/crosscore/cloud-ocr-summarizer/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Init writes a commented default config file to the home directory,
or to the path given with --config. Existing files are not overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := getHome()
			if err != nil {
				return err
			}
			path = h.ConfigPath()
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}

		fmt.Printf("config written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Show prints the configuration after merging defaults, the config file
and OCRSUM_* environment variables. Secret references like ${VISION_API_KEY}
are printed unresolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return render.Output(cfg)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
}
