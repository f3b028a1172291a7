package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
	"github.com/jackzampolin/bookvoice/internal/types"
)

var (
	validateSource   string
	validateChapters string
)

var validateCmd = &cobra.Command{
	Use:   "validate <run-dir|run-id>",
	Short: "Check whether a run can be resumed",
	Long: `Classify the artifacts of a run without changing anything.

Settings come from the run manifest. When the manifest is missing or
unreadable, pass --source to derive them from the current configuration.
Exits non-zero when the run is not recoverable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setupServices(cmd)
		if err != nil {
			return err
		}
		dir, err := runDir(s, args[0])
		if err != nil {
			return err
		}

		var settings types.RunSettings
		m, err := pipeline.LoadManifest(dir)
		switch {
		case err == nil:
			settings = m.Settings
		case validateSource != "":
			s.Logger.Warn("manifest unreadable, using current configuration", "error", err)
			if settings, _, err = newRun(s, validateSource, validateChapters); err != nil {
				return err
			}
		default:
			return fmt.Errorf("cannot read manifest in %s (pass --source to validate against current settings): %w", dir, err)
		}

		report, err := pipeline.Validate(dir, settings, s.Logger)
		if err != nil {
			return err
		}
		if err := api.Output(textView{report, func() string { return renderReport(report) }}); err != nil {
			return err
		}
		return report.Err()
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSource, "source", "", "source file, used when the manifest cannot be read")
	validateCmd.Flags().StringVar(&validateChapters, "chapters", "", "chapter selection used with --source")
	addRunFlags(validateCmd)

	rootCmd.AddCommand(validateCmd)
}
