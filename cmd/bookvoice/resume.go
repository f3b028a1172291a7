package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-dir|run-id>",
	Short: "Continue an interrupted run",
	Long: `Validate the artifacts of an existing run and continue from the first
stage that is missing. The settings recorded in the run manifest are used,
so the run keeps its identity.

A run whose artifacts disagree with each other is not touched. The
report lists the files to delete before resuming again.`,
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
		m, err := pipeline.LoadManifest(dir)
		if err != nil {
			return fmt.Errorf("cannot resume %s: %w", dir, err)
		}
		f, err := newFactory(s, m.Settings, promptResolver(s))
		if err != nil {
			return err
		}

		res, runErr := pipeline.NewRunner(f).Run(cmd.Context(), dir, m.Settings)
		if res != nil {
			if err := api.Output(textView{res, func() string { return renderResult(res) }}); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
