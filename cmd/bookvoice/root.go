package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "bookvoice",
	Short: "Turn books into translated, narrated audio",
	Long: `Bookvoice converts a book (PDF, EPUB, HTML, Markdown or plain text) into
narrated audio in a target language.

The pipeline includes:
  - Text extraction with outline detection and cleanup
  - Chapter structure from the outline or heading heuristics
  - Sentence-aware segment planning within a character budget
  - LLM translation and narration rewrite
  - Text-to-speech synthesis, merging and per-chapter packaging

Every stage writes an artifact under the run directory, so an interrupted
run continues with "bookvoice resume".`,
	Version:      version.GitRelease,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.bookvoice/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "bookvoice home directory (default: ~/.bookvoice)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(versionCmd)
}
