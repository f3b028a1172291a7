package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookvoice/internal/api"
	"github.com/jackzampolin/bookvoice/internal/voices"
)

var voicesProvider string

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voices of the configured TTS providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setupServices(cmd)
		if err != nil {
			return err
		}
		defaults := make(map[string]string)
		for name, p := range s.Config.Get().Providers.TTS {
			defaults[name] = p.Voice
		}
		vs, err := voices.List(cmd.Context(), voices.ListConfig{
			Registry: s.Registry,
			Provider: voicesProvider,
			Defaults: defaults,
			Logger:   s.Logger,
		})
		if err != nil {
			return err
		}
		return api.Output(textView{vs, func() string {
			rows := make([][]string, 0, len(vs))
			for _, v := range vs {
				mark := ""
				if v.IsDefault {
					mark = api.OK("default")
				}
				rows = append(rows, []string{v.Provider, v.VoiceID, v.Name, mark})
			}
			return api.Table([]string{"PROVIDER", "VOICE", "NAME", ""}, rows)
		}})
	},
}

func init() {
	voicesCmd.Flags().StringVar(&voicesProvider, "provider", "", "only list voices of this TTS provider")

	rootCmd.AddCommand(voicesCmd)
}
