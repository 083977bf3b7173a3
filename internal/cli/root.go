package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/visionrelay/visionrelay/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		"        _     _                      _\n" +
		" __   _(_)___(_) ___  _ __  _ __ ___| | __ _ _   _\n" +
		" \\ \\ / / / __| |/ _ \\| '_ \\| '__/ _ \\ |/ _` | | | |\n" +
		"  \\ V /| \\__ \\ | (_) | | | | | |  __/ | (_| | |_| |\n" +
		"   \\_/ |_|___/_|\\___/|_| |_|_|  \\___|_|\\__,_|\\__, |\n" +
		"                                             |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "visionrelay",
	Short: "visionrelay - Slack vision-inference relay",
	Long:  color.CyanString(logo) + "\nA Slack gateway that runs uploaded images through a vision-inference API and replies in-thread.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
