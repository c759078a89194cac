package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show local sync state",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		probe, _ := cmd.Flags().GetBool("probe")

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		if probe {
			e.Probe(cmd.Context())
		}

		st := e.Status()
		if asJSON {
			return output.JSON(struct {
				DeviceID        string  `json:"device_id"`
				ServerURL       string  `json:"server_url"`
				HasConnectivity bool    `json:"has_connectivity"`
				IsSyncing       bool    `json:"is_syncing"`
				LastSyncAt      *string `json:"last_sync_at"`
				PendingCount    int64   `json:"pending_count"`
				SyncedCount     int64   `json:"synced_count"`
			}{
				DeviceID:        st.DeviceID,
				ServerURL:       st.ServerURL,
				HasConnectivity: st.HasConnectivity,
				IsSyncing:       st.IsSyncing,
				LastSyncAt:      formatTimePtr(st.LastSyncAt),
				PendingCount:    st.PendingCount,
				SyncedCount:     st.SyncedCount,
			})
		}

		fmt.Printf("Device:       %s\n", st.DeviceID)
		fmt.Printf("Server:       %s\n", st.ServerURL)
		fmt.Printf("Connectivity: %s\n", output.FormatConnectivity(st.HasConnectivity))
		if st.IsSyncing {
			fmt.Println("Sync:         in progress")
		}
		fmt.Printf("Last sync:    %s\n", output.FormatLastSync(st.LastSyncAt))
		fmt.Printf("Pending:      %d operations\n", st.PendingCount)
		fmt.Printf("Synced:       %d operations\n", st.SyncedCount)
		return nil
	},
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func init() {
	statusCmd.Flags().Bool("json", false, "output as JSON")
	statusCmd.Flags().Bool("probe", false, "probe the server before reporting")
	rootCmd.AddCommand(statusCmd)
}
