package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/models"
	"github.com/scribesync/scribe/internal/output"
)

// parseRecordArgs validates the shared <type> <id> [payload] argument shape.
func parseRecordArgs(args []string, wantPayload bool) (models.EntityType, int64, json.RawMessage, error) {
	et, err := models.ParseEntityType(args[0])
	if err != nil {
		return "", 0, nil, err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, nil, fmt.Errorf("invalid entity id %q", args[1])
	}

	var payload json.RawMessage
	if wantPayload && len(args) > 2 {
		if !json.Valid([]byte(args[2])) {
			return "", 0, nil, fmt.Errorf("payload is not valid JSON")
		}
		payload = json.RawMessage(args[2])
	}
	return et, id, payload, nil
}

var addCmd = &cobra.Command{
	Use:     "add <type> <id> [payload]",
	Short:   "Record a create for an entity",
	Long:    `Records a create operation locally. The optional payload is a JSON object; it is queued as-is and pushed on the next sync.`,
	Example: `  scribe add note 7 '{"title":"meeting notes"}'`,
	GroupID: "core",
	Args:    cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		et, id, payload, err := parseRecordArgs(args, true)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		if e.AutoSyncEnabled() {
			e.Probe(cmd.Context())
		}
		if err := e.RecordCreate(et, id, payload); err != nil {
			output.Error("record create: %v", err)
			return err
		}
		output.Success("Recorded create %s/%d", et, id)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <type> <id> [payload]",
	Short:   "Record an update for an entity",
	GroupID: "core",
	Args:    cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		et, id, payload, err := parseRecordArgs(args, true)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		if e.AutoSyncEnabled() {
			e.Probe(cmd.Context())
		}
		if err := e.RecordUpdate(et, id, payload); err != nil {
			output.Error("record update: %v", err)
			return err
		}
		output.Success("Recorded update %s/%d", et, id)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <type> <id>",
	Aliases: []string{"delete"},
	Short:   "Record a delete for an entity",
	GroupID: "core",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		et, id, _, err := parseRecordArgs(args, false)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		if e.AutoSyncEnabled() {
			e.Probe(cmd.Context())
		}
		if err := e.RecordDelete(et, id); err != nil {
			output.Error("record delete: %v", err)
			return err
		}
		output.Success("Recorded delete %s/%d", et, id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
}
