// Package tracker turns survey lifecycle events into webhook deliveries or
// xAPI statements posted to an LRS.
package tracker

import (
	"fmt"
	"strconv"
)

type Kind string

const (
	SurveyStarted   Kind = "survey-started"
	PageRendered    Kind = "page-rendered"
	ResponseSaved   Kind = "response-saved"
	SurveyCompleted Kind = "survey-completed"
)

func (k Kind) Valid() bool {
	switch k {
	case SurveyStarted, PageRendered, ResponseSaved, SurveyCompleted:
		return true
	}
	return false
}

// HostEvent is the survey host's own name for k. survey-started maps to
// the page event the host fires for the first page.
func (k Kind) HostEvent() string {
	switch k {
	case SurveyStarted, PageRendered:
		return "beforeSurveyPage"
	case ResponseSaved:
		return "afterResponseSave"
	case SurveyCompleted:
		return "afterSurveyComplete"
	}
	return string(k)
}

func webhookEventName(k Kind, host bool) string {
	if host {
		return k.HostEvent()
	}
	return string(k)
}

// Event is one lifecycle event. Token and Lang come from the respondent's
// request; LastPage is 0 when the host did not report it.
type Event struct {
	Kind       Kind   `json:"event"`
	SurveyID   string `json:"surveyId"`
	ResponseID string `json:"responseId,omitempty"`
	Token      string `json:"token,omitempty"`
	Lang       string `json:"lang,omitempty"`
	LastPage   int    `json:"lastPage,omitempty"`
}

func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown event %q", e.Kind)
	}
	if _, err := strconv.ParseUint(e.SurveyID, 10, 64); err != nil {
		return fmt.Errorf("survey id %q is not numeric", e.SurveyID)
	}
	if e.ResponseID != "" {
		if _, err := strconv.ParseInt(e.ResponseID, 10, 64); err != nil {
			return fmt.Errorf("response id %q is not numeric", e.ResponseID)
		}
	}
	switch e.Kind {
	case ResponseSaved, SurveyCompleted:
		if e.ResponseID == "" {
			return fmt.Errorf("%s requires a response id", e.Kind)
		}
	}
	return nil
}

// Outcome reports what a dispatch did. Skipped is set when nothing was
// sent; Trace is the escaped debug block when debug mode is on.
type Outcome struct {
	Kind       Kind   `json:"event"`
	SurveyID   string `json:"surveyId"`
	Target     string `json:"target,omitempty"`
	Skipped    string `json:"skipped,omitempty"`
	Delivered  bool   `json:"delivered"`
	Status     int    `json:"status,omitempty"`
	Statements int    `json:"statements,omitempty"`
	Response   string `json:"response,omitempty"`
	Trace      string `json:"trace,omitempty"`
}
