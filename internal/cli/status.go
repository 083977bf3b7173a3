package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/visionrelay/visionrelay/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ visionrelay Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 visionrelay Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (" + configPath + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:  ? Unable to load:", err)
			return
		}
		if cfg.Slack.SigningSecret != "" {
			fmt.Println("Signing Secret: ✓ Set")
		} else {
			fmt.Println("Signing Secret: ✗ Not set")
		}
		if cfg.Slack.ClientID != "" && cfg.Slack.ClientSecret != "" {
			fmt.Println("OAuth App:      ✓ Configured")
		} else {
			fmt.Println("OAuth App:      ✗ Not configured (install flow disabled)")
		}
		fmt.Printf("Store:          %s\n", cfg.Store.Backend)
		fmt.Printf("Vision Agent:   %s\n", cfg.Vision.Agent)
		fmt.Printf("Listen:         %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	},
}
