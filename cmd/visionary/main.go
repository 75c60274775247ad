// Command visionary runs a Visionary Studio live session from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/visionary/runtime/logger"
	"github.com/AltairaLabs/visionary/runtime/version"
)

var rootCmd = &cobra.Command{
	Use:           "visionary",
	Short:         "Visionary Studio - talk to a live model that draws on a shared canvas",
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `Visionary Studio streams your microphone and camera to a live multimodal
model, plays its spoken replies, and places the images it generates on a canvas.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting verbose flag: %v\n", err)
				return
			}
			logger.SetVerbose(verbose)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "StudioConfig manifest (defaults apply when omitted)")
}

func Execute() {
	rootCmd.SetVersionTemplate(version.GetVersionInfo() + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
