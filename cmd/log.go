package cmd

import (
	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
)

var logCmd = &cobra.Command{
	Use:     "log",
	Aliases: []string{"pending"},
	Short:   "List operations waiting to sync",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		ops, err := e.PendingOperations()
		if err != nil {
			output.Error("read pending: %v", err)
			return err
		}

		if asJSON {
			return output.JSON(ops)
		}

		if len(ops) == 0 {
			output.Info("Nothing waiting to sync")
			return nil
		}
		for i := range ops {
			output.Info("%s", output.FormatOperation(&ops[i]))
		}
		return nil
	},
}

func init() {
	logCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(logCmd)
}
