package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Handle a single lifecycle event and print the outcome",
	Example: `  trackerd dispatch --event survey-completed --survey 123456 --response 9
  trackerd dispatch --event page-rendered --survey 123456 --token abc --last-page 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var ev tracker.Event
		kind, _ := f.GetString("event")
		ev.Kind = tracker.Kind(kind)
		ev.SurveyID, _ = f.GetString("survey")
		ev.ResponseID, _ = f.GetString("response")
		ev.Token, _ = f.GetString("token")
		ev.Lang, _ = f.GetString("lang")
		ev.LastPage, _ = f.GetInt("last-page")
		if err := ev.Validate(); err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), loadConfig())
		if err != nil {
			return err
		}
		defer a.close()

		out := a.engine.Handle(cmd.Context(), ev)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if out.Skipped != "" {
			return fmt.Errorf("not delivered: %s", out.Skipped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	f := dispatchCmd.Flags()
	f.String("event", "", "survey-started | page-rendered | response-saved | survey-completed")
	f.String("survey", "", "survey id")
	f.String("response", "", "response id (response-saved, survey-completed)")
	f.String("token", "", "respondent token")
	f.String("lang", "", "language, defaults to the survey default")
	f.Int("last-page", 0, "page just rendered; 0 reads it from the response row")
	_ = dispatchCmd.MarkFlagRequired("event")
	_ = dispatchCmd.MarkFlagRequired("survey")
}
