package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribesync/scribe/internal/output"
	"github.com/scribesync/scribe/internal/store"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize a scribe workspace",
	Long:    `Creates the local .scribe directory and SQLite database.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if _, err := os.Stat(filepath.Join(baseDir, ".scribe")); err == nil {
			output.Warning(".scribe/ already exists")
			return nil
		}

		st, err := store.Create(baseDir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer st.Close()

		deviceID, err := st.DeviceID()
		if err != nil {
			output.Error("failed to create device identity: %v", err)
			return err
		}

		output.Info("INITIALIZED .scribe/")
		output.Info("Device: %s", deviceID)

		gitignorePath := filepath.Join(baseDir, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			addToGitignore(gitignorePath)
		}

		return nil
	},
}

func addToGitignore(path string) {
	content, _ := os.ReadFile(path)
	contentStr := string(content)

	if strings.Contains(contentStr, ".scribe/") {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(contentStr) > 0 && !strings.HasSuffix(contentStr, "\n") {
		f.WriteString("\n")
	}

	f.WriteString(".scribe/\n")
	output.Info("Added .scribe/ to .gitignore")
}

func init() {
	rootCmd.AddCommand(initCmd)
}
