package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/visionary/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate StudioConfig manifests",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a StudioConfig manifest",
	Long: `Validates a StudioConfig manifest against the embedded JSON schema and the
cross-field rules applied at startup.

Examples:
  visionary config validate studio.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigValidate,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the StudioConfig JSON schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := cmd.OutOrStdout().Write(config.Schema())
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configSchemaCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid\n", filepath.Base(path))
	return nil
}
