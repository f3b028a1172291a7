package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/pipeline"
	"github.com/jackzampolin/bookvoice/internal/types"
)

// runSummary is one row of the runs listing.
type runSummary struct {
	RunID     string `json:"run_id" yaml:"run_id"`
	Book      string `json:"book" yaml:"book"`
	Language  string `json:"language" yaml:"language"`
	LastStage string `json:"last_stage" yaml:"last_stage"`
	Completed bool   `json:"completed" yaml:"completed"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs under the home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setupServices(cmd)
		if err != nil {
			return err
		}
		ids, err := s.Home.ListRuns()
		if err != nil {
			return err
		}

		runs := make([]runSummary, 0, len(ids))
		for _, id := range ids {
			sum := runSummary{RunID: id}
			m, err := pipeline.LoadManifest(s.Home.RunPath(id))
			if err != nil {
				sum.Error = err.Error()
				runs = append(runs, sum)
				continue
			}
			sum.Book = bookLabel(m.Book)
			sum.Language = m.Settings.Language
			sum.LastStage, _ = m.Extra[types.ExtraLastStage].(string)
			sum.Completed = m.Completed()
			runs = append(runs, sum)
		}

		return api.Output(textView{runs, func() string {
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				status := api.Warn(r.LastStage)
				switch {
				case r.Error != "":
					status = api.Error("unreadable")
				case r.Completed:
					status = api.OK("completed")
				}
				rows = append(rows, []string{r.RunID, r.Book, r.Language, status})
			}
			return api.Table([]string{"RUN", "BOOK", "LANGUAGE", "STATUS"}, rows)
		}})
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
