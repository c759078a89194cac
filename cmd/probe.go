package cmd

import (
	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
)

var probeCmd = &cobra.Command{
	Use:     "probe",
	Short:   "Check whether the sync server is reachable",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		if e.Probe(cmd.Context()) {
			output.Success("Server reachable")
			return nil
		}
		output.Warning("Server unreachable")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
