package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mozilla-it/bitbar-devicepool/internal/bootstrap"
)

var emptyZipFilename string

var emptyTestZipCmd = &cobra.Command{
	Use:   "empty-test-zip",
	Short: "Write an empty test ZIP into the files directory, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootstrap.WriteEmptyTestZip(filesDir, emptyZipFilename); err != nil {
			return fmt.Errorf("empty-test-zip: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(filesDir, emptyZipFilename))
		return nil
	},
}

func init() {
	emptyTestZipCmd.Flags().StringVar(&emptyZipFilename, "filename", "empty-test.zip",
		"filename to save in the files directory")
	rootCmd.AddCommand(emptyTestZipCmd)
}
