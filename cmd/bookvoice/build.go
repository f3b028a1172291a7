package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/config"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
)

var (
	buildChapters string
	buildOut      string
)

var buildCmd = &cobra.Command{
	Use:   "build <source>",
	Short: "Convert a book into narrated audio",
	Long: `Run the full pipeline for a source file.

The run directory defaults to ~/.bookvoice/runs/<run_id>, where the run id
is derived from the settings hash. Building the same book with the same
settings again reuses every finished stage.

Examples:
  bookvoice build book.epub
  bookvoice build book.pdf --chapters 1,3-5 --language de
  bookvoice build book.md --rewrite-bypass --package mp3 --out ./out`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setupServices(cmd)
		if err != nil {
			return err
		}
		settings, f, err := newRun(s, args[0], buildChapters)
		if err != nil {
			return err
		}

		dir := buildOut
		if dir == "" {
			id, err := config.Identity(settings)
			if err != nil {
				return err
			}
			if dir, err = s.Home.EnsureRunDir(id.RunID); err != nil {
				return err
			}
		}

		res, runErr := pipeline.NewRunner(f).Run(cmd.Context(), dir, settings)
		if res != nil {
			if err := api.Output(textView{res, func() string { return renderResult(res) }}); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildChapters, "chapters", "", "chapter selection, e.g. 5, 1,3,7, 2-4 or 1,3-5 (default: all)")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "run directory (default: ~/.bookvoice/runs/<run_id>)")
	addRunFlags(buildCmd)

	rootCmd.AddCommand(buildCmd)
}
