package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docling-graph/core/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage docling-graph configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

var setAPIKeyCmd = &cobra.Command{
	Use:   "set-api-key <provider> <key>",
	Short: "Store a completer API key in the OS keychain",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetAPIKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(setAPIKeyCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runSetAPIKey(cmd *cobra.Command, args []string) error {
	provider, key := args[0], args[1]
	km := config.NewKeyringManager()
	if err := km.SaveAPIKey(provider, key); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	logger.WithField("provider", provider).Info("API key stored in keychain")
	return nil
}
