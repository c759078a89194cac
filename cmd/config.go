package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/config"
	"github.com/scribesync/scribe/internal/output"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show effective configuration",
	Long:    `Prints the settings the engine will use: environment overrides first, then the config file, then built-in defaults.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		if asJSON {
			return output.JSON(struct {
				ServerURL     string `json:"server_url"`
				AutoSync      bool   `json:"auto_sync"`
				SyncInterval  string `json:"sync_interval"`
				Settle        string `json:"settle"`
				ProbeInterval string `json:"probe_interval"`
				DraftDebounce string `json:"draft_debounce"`
			}{
				ServerURL:     config.ServerURL(),
				AutoSync:      config.AutoSync(),
				SyncInterval:  config.SyncInterval().String(),
				Settle:        config.Settle().String(),
				ProbeInterval: config.ProbeInterval().String(),
				DraftDebounce: config.DraftDebounce().String(),
			})
		}

		fmt.Printf("Server URL:     %s\n", config.ServerURL())
		fmt.Printf("Auto sync:      %t\n", config.AutoSync())
		fmt.Printf("Sync interval:  %s\n", config.SyncInterval())
		fmt.Printf("Settle delay:   %s\n", config.Settle())
		fmt.Printf("Probe interval: %s\n", config.ProbeInterval())
		fmt.Printf("Draft debounce: %s\n", config.DraftDebounce())

		if dir, err := config.Dir(); err == nil {
			fmt.Printf("\nConfig file:    %s\n", filepath.Join(dir, "config.json"))
		}
		return nil
	},
}

func init() {
	configCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(configCmd)
}
