// Package webhook builds the generic JSON envelope posted to webhook
// targets instead of xAPI statements.
package webhook

import (
	"encoding/json"
	"time"

	"github.com/mind-engage/xapi-tracker/internal/responses"
)

// TimeFormat is the envelope datetime layout, microseconds with a UTC suffix.
const TimeFormat = "2006-01-02 15:04:05.000000 UTC"

type Actor struct {
	Name string `json:"name"`
}

type Object struct {
	ID string `json:"id"`
}

type Context struct {
	Lang string `json:"lang"`
}

// Details is event_details. Response holds one row for completed surveys
// and every row of the token for saved responses.
type Details struct {
	Actor      Actor   `json:"actor"`
	Object     Object  `json:"object"`
	Context    Context `json:"context"`
	Timestamp  string  `json:"timestamp"`
	ResponseID string  `json:"responseId,omitempty"`
	Response   any     `json:"response,omitempty"`
	SubmitDate string  `json:"submitDate,omitempty"`
}

type Envelope struct {
	Event        string  `json:"event"`
	EventDetails Details `json:"event_details"`
	Datetime     string  `json:"datetime"`
}

// NewDetails fills the fields every event carries.
func NewDetails(surveyID, token, lang string) Details {
	return Details{
		Actor:   Actor{Name: token},
		Object:  Object{ID: surveyID},
		Context: Context{Lang: lang},
	}
}

// WithResponse attaches a single completed response row.
func (d Details) WithResponse(responseID string, row responses.Row) Details {
	d.ResponseID = responseID
	if row != nil {
		d.Response = row
		d.SubmitDate = row["submitdate"]
	}
	return d
}

// WithRows attaches every stored row of the respondent.
func (d Details) WithRows(rows []responses.Row) Details {
	if rows == nil {
		rows = []responses.Row{}
	}
	d.Response = rows
	return d
}

func New(event string, d Details, at time.Time) Envelope {
	return Envelope{Event: event, EventDetails: d, Datetime: at.UTC().Format(TimeFormat)}
}

func (Envelope) ContentType() string { return "application/json" }

func (e Envelope) Body() ([]byte, error) { return json.Marshal(e) }
