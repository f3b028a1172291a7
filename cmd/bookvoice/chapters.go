package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters <source>",
	Short: "List the chapters detected in a source file",
	Long: `List detected chapters with their indices. Use the indices with
--chapters on build and plan.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setupServices(cmd)
		if err != nil {
			return err
		}
		settings, f, err := newRun(s, args[0], "")
		if err != nil {
			return err
		}
		ins, err := pipeline.Inspect(cmd.Context(), f, settings, false)
		if err != nil {
			return err
		}
		return api.Output(textView{ins, func() string { return renderChapters(ins) }})
	},
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
}
