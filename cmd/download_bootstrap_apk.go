package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mozilla-it/bitbar-devicepool/internal/bootstrap"
)

// bootstrapAPKURL is the canned sample APK the original fetches
// (original_source main.py testdroid_apk_url).
const bootstrapAPKURL = "https://github.com/bitbar/bitbar-samples/blob/master/apps/builds/Testdroid.apk?raw=true"

var (
	apkFilename string
	apkForce    bool
)

var downloadBootstrapAPKCmd = &cobra.Command{
	Use:   "download-bootstrap-apk",
	Short: "Fetch a canned sample APK into the files directory, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := apkFilename
		if filename == "" {
			filename = "Testdroid.apk"
		}
		if err := bootstrap.FetchBootstrapAPK(cmd.Context(), http.DefaultClient, bootstrapAPKURL, filesDir, filename, apkForce); err != nil {
			return fmt.Errorf("download-bootstrap-apk: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(filesDir, filename))
		return nil
	},
}

func init() {
	downloadBootstrapAPKCmd.Flags().StringVar(&apkFilename, "filename", "",
		"filename to save the APK under in the files directory (defaults to the upstream basename)")
	downloadBootstrapAPKCmd.Flags().BoolVar(&apkForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(downloadBootstrapAPKCmd)
}
