package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
	"github.com/scribesync/scribe/internal/tui/watch"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Live sync dashboard",
	Long:    `Opens a full-screen dashboard showing connectivity, sync state, and the pending queue, refreshed every second.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		model := watch.NewModel(e, time.Second)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			output.Error("watch: %v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
