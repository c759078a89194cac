package cmd

import (
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Re-queue all synced operations",
	Long:    `Clears the sync history: every acknowledged operation becomes pending again and the last-sync marker is erased. Use this when pointing the client at a fresh server.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Re-queue all synced operations?").
					Description("The server will deduplicate replays, but every operation will be retransmitted.").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				output.Info("Aborted")
				return nil
			}
		}

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		n, err := e.ResetSyncHistory()
		if err != nil {
			output.Error("reset: %v", err)
			return err
		}
		output.Success("Re-queued %d operations", n)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
