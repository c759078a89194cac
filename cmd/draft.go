package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/models"
	"github.com/scribesync/scribe/internal/output"
)

var draftCmd = &cobra.Command{
	Use:     "draft",
	Short:   "Manage editing drafts",
	Long:    `Drafts are per-entity autosaved text, kept locally until discarded. Use "new" as the id for unsaved entities, e.g. "post:new".`,
	GroupID: "core",
}

var draftSaveCmd = &cobra.Command{
	Use:     "save <scope> [content]",
	Short:   "Save a draft for a scope",
	Example: `  scribe draft save note:7 "work in progress..."
  cat draft.md | scribe draft save post:new`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := models.ParseScopeKey(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		var content string
		if len(args) > 1 {
			content = args[1]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				output.Error("read stdin: %v", err)
				return err
			}
			content = string(data)
		}

		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close() // flushes the pending save

		e.SaveDraft(scope, content)
		e.FlushDrafts()
		output.Success("Draft saved for %s", scope)
		return nil
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show <scope>",
	Short: "Show the draft for a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		render, _ := cmd.Flags().GetBool("render")

		scope, err := models.ParseScopeKey(args[0])
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

		d, err := e.LoadDraft(scope)
		if err != nil {
			output.Error("load draft: %v", err)
			return err
		}
		if d == nil {
			output.Info("No draft for %s", scope)
			return nil
		}

		if render {
			rendered, err := output.RenderMarkdown(d.Content)
			if err != nil {
				output.Error("render: %v", err)
				return err
			}
			fmt.Println(rendered)
		} else {
			fmt.Println(d.Content)
		}
		return nil
	},
}

var draftListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd.Context())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer e.Close()

		drafts, err := e.ListDrafts()
		if err != nil {
			output.Error("list drafts: %v", err)
			return err
		}
		if len(drafts) == 0 {
			output.Info("No drafts")
			return nil
		}
		for i := range drafts {
			output.Info("%s", output.FormatDraft(&drafts[i]))
		}
		return nil
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear <scope>",
	Short: "Discard the draft for a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := models.ParseScopeKey(args[0])
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

		if err := e.ClearDraft(scope); err != nil {
			output.Error("clear draft: %v", err)
			return err
		}
		output.Success("Draft cleared for %s", scope)
		return nil
	},
}

func init() {
	draftCmd.AddCommand(draftSaveCmd)
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftListCmd)
	draftCmd.AddCommand(draftClearCmd)
	draftShowCmd.Flags().Bool("render", false, "render markdown to the terminal")
	rootCmd.AddCommand(draftCmd)
}
