// Package cmd provides the CLI commands for yomu.
package cmd

import (
	"github.com/spf13/cobra"
)

// global flags
var (
	logPath string
	rootDir string
)

// rootCmd is the root command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "yomu",
	Short: "Terminal viewer for manga and comic folders",
	Long: `yomu browses directories and comic archives (cbz/zip, cbr/rar, cb7/7z)
and reads them page by page in the terminal, with inline images on
kitty- and sixel-capable terminals.

Running without a subcommand launches the interactive viewer.

Commands:
  open      Open a folder or archive directly in the viewer
  queue     Manage the companion download queue
  resume    Inspect saved reading positions
  version   Print version information

Examples:
  yomu                            # Launch the library browser
  yomu open ~/comics/chapter-12   # Open a chapter directly
  yomu queue serve                # Run the download queue API
  yomu queue add chapter.urls     # Queue a chapter manifest`,
	RunE: runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "write a debug log to this file")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "library root directory (overrides config)")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(versionCmd)
}
