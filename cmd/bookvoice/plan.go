package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
)

var planChapters string

var planCmd = &cobra.Command{
	Use:   "plan <source>",
	Short: "Show structure and narration segments without calling providers",
	Long: `Extract, clean and structure a source file, then plan narration
segments. Nothing is written and no provider is called.

Examples:
  bookvoice plan book.epub
  bookvoice plan book.pdf --chapters 2-4 --budget 4000 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setupServices(cmd)
		if err != nil {
			return err
		}
		settings, f, err := newRun(s, args[0], planChapters)
		if err != nil {
			return err
		}
		ins, err := pipeline.Inspect(cmd.Context(), f, settings, true)
		if err != nil {
			return err
		}
		return api.Output(textView{ins, func() string { return renderPlan(ins) }})
	},
}

func init() {
	planCmd.Flags().StringVar(&planChapters, "chapters", "", "chapter selection, e.g. 5, 1,3,7, 2-4 or 1,3-5 (default: all)")
	addRunFlags(planCmd)

	rootCmd.AddCommand(planCmd)
}
