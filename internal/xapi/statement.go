// Package xapi holds the Experience API statement model and a pure builder
// for the survey lifecycle statements.
package xapi

import "encoding/json"

// TimeFormat is the statement timestamp layout: UTC, second precision.
const TimeFormat = "2006-01-02T15:04:05Z"

type LangMap map[string]string

type Account struct {
	HomePage string `json:"homePage"`
	Name     string `json:"name"`
}

type Actor struct {
	ObjectType string  `json:"objectType"`
	Account    Account `json:"account"`
}

type Verb struct {
	ID      string  `json:"id"`
	Display LangMap `json:"display"`
}

var (
	Initialized = Verb{ID: "http://adlnet.gov/expapi/verbs/initialized", Display: LangMap{"en-US": "initialized"}}
	Progressed  = Verb{ID: "http://adlnet.gov/expapi/verbs/progressed", Display: LangMap{"en-US": "progressed"}}
	Completed   = Verb{ID: "http://adlnet.gov/expapi/verbs/completed", Display: LangMap{"en-US": "completed"}}
	Selected    = Verb{ID: "http://id.tincanapi.com/verb/selected", Display: LangMap{"en-US": "selected"}}
)

// Activity types and extension keys.
const (
	TypeSurvey   = "http://adlnet.gov/expapi/activities/assessment"
	TypeQuestion = "http://adlnet.gov/expapi/activities/question"
	TypeCategory = "http://id.tincanapi.com/activitytype/source"

	CategoryID = "http://id.tincanapi.com/activity/survey-tracker"

	ExtProgress = "https://w3id.org/xapi/video/extensions/progress"
)

type Definition struct {
	Type string  `json:"type,omitempty"`
	Name LangMap `json:"name,omitempty"`
}

type Activity struct {
	ObjectType string      `json:"objectType"`
	ID         string      `json:"id"`
	Definition *Definition `json:"definition,omitempty"`
}

type Result struct {
	Success    *bool          `json:"success,omitempty"`
	Completion *bool          `json:"completion,omitempty"`
	Response   string         `json:"response,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type ContextActivities struct {
	Parent   []Activity `json:"parent,omitempty"`
	Category []Activity `json:"category,omitempty"`
}

type Context struct {
	Registration      string             `json:"registration,omitempty"`
	Language          string             `json:"language,omitempty"`
	ContextActivities *ContextActivities `json:"contextActivities,omitempty"`
}

type Statement struct {
	ID        string   `json:"id"`
	Actor     Actor    `json:"actor"`
	Verb      Verb     `json:"verb"`
	Object    Activity `json:"object"`
	Result    *Result  `json:"result,omitempty"`
	Context   *Context `json:"context,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Progress returns the progress extension value, or -1 if absent.
func (s Statement) Progress() float64 {
	if s.Result == nil {
		return -1
	}
	if v, ok := s.Result.Extensions[ExtProgress].(float64); ok {
		return v
	}
	return -1
}

// Batch is the JSON array posted to {endpoint}/statements.
type Batch []Statement

func (Batch) ContentType() string { return "application/json" }

func (b Batch) Body() ([]byte, error) {
	if b == nil {
		b = Batch{}
	}
	return json.Marshal([]Statement(b))
}
