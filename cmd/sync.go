package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push pending operations to the server",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverStatus, _ := cmd.Flags().GetBool("server")

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		if serverStatus {
			st, err := e.ServerStatus(cmd.Context())
			if err != nil {
				output.Error("server status: %v", err)
				return err
			}
			fmt.Printf("Events:       %d\n", st.EventCount)
			fmt.Printf("Last seq:     %d\n", st.LastServerSeq)
			if st.LastEventTime != "" {
				fmt.Printf("Last event:   %s\n", st.LastEventTime)
			}
			return nil
		}

		// The scheduler refuses to sync until connectivity is verified
		if !e.Probe(cmd.Context()) {
			output.Warning("server unreachable; operations stay queued")
			return nil
		}

		started, err := e.SyncNow(cmd.Context())
		if err != nil {
			output.Error("sync: %v", err)
			return err
		}
		if !started {
			output.Warning("sync already in progress")
			return nil
		}

		st := e.Status()
		output.Success("Synced. %d pending, %d total synced", st.PendingCount, st.SyncedCount)
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("server", false, "show server-side sync status instead of syncing")
	rootCmd.AddCommand(syncCmd)
}
