package xapi

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/xapi-tracker/internal/responses"
)

// Subject identifies who did what: the respondent, the survey and the
// registration that ties one attempt's statements together.
type Subject struct {
	SurveyID     string
	SurveyTitle  string
	Token        string
	Lang         string
	Registration string
}

// Builder turns lifecycle events into statements. It does no I/O; ids come
// from NewID and the timestamp is passed in once per event.
type Builder struct {
	HomePage     string
	ActivityBase string
	NewID        func() string
}

func NewBuilder(homePage, activityBase string) Builder {
	return Builder{HomePage: homePage, ActivityBase: activityBase, NewID: uuid.NewString}
}

func (b Builder) id() string {
	if b.NewID == nil {
		return uuid.NewString()
	}
	return b.NewID()
}

// SurveyActivityID is {ActivityBase}/surveys/{id}.
func (b Builder) SurveyActivityID(surveyID string) string {
	return strings.TrimRight(b.ActivityBase, "/") + "/surveys/" + surveyID
}

func (b Builder) survey(s Subject) Activity {
	def := &Definition{Type: TypeSurvey}
	if s.SurveyTitle != "" {
		def.Name = LangMap{langTag(s.Lang): s.SurveyTitle}
	}
	return Activity{ObjectType: "Activity", ID: b.SurveyActivityID(s.SurveyID), Definition: def}
}

func (b Builder) statement(s Subject, verb Verb, obj Activity, res *Result, ts string) Statement {
	ctx := &Context{
		Registration: s.Registration,
		Language:     s.Lang,
		ContextActivities: &ContextActivities{
			Category: []Activity{{ObjectType: "Activity", ID: CategoryID, Definition: &Definition{Type: TypeCategory}}},
		},
	}
	if obj.ID != b.SurveyActivityID(s.SurveyID) {
		ctx.ContextActivities.Parent = []Activity{{ObjectType: "Activity", ID: b.SurveyActivityID(s.SurveyID)}}
	}
	return Statement{
		ID:        b.id(),
		Actor:     Actor{ObjectType: "Agent", Account: Account{HomePage: b.HomePage, Name: s.Token}},
		Verb:      verb,
		Object:    obj,
		Result:    res,
		Context:   ctx,
		Timestamp: ts,
	}
}

func progress(v float64) *Result {
	return &Result{Extensions: map[string]any{ExtProgress: v}}
}

// Started is initialized followed by progressed(0).
func (b Builder) Started(s Subject, at time.Time) Batch {
	ts := at.UTC().Format(TimeFormat)
	obj := b.survey(s)
	return Batch{
		b.statement(s, Initialized, obj, nil, ts),
		b.statement(s, Progressed, obj, progress(0), ts),
	}
}

// Page emits one selected statement per answer and, unless this was the
// last page, a trailing progressed statement with the page fraction.
func (b Builder) Page(s Subject, p responses.Page, at time.Time) Batch {
	ts := at.UTC().Format(TimeFormat)
	survey := b.survey(s)
	out := Batch{}
	for _, a := range p.Answers {
		q := Activity{
			ObjectType: "Activity",
			ID:         survey.ID + "/questions/" + a.Path,
			Definition: &Definition{Type: TypeQuestion, Name: LangMap{langTag(s.Lang): a.Key}},
		}
		out = append(out, b.statement(s, Selected, q, &Result{Response: a.Value}, ts))
	}
	if !p.IsLast() {
		out = append(out, b.statement(s, Progressed, survey, progress(p.Progress()), ts))
	}
	return out
}

// Completed is progressed(1) followed by completed with success and
// completion both set.
func (b Builder) Completed(s Subject, at time.Time) Batch {
	ts := at.UTC().Format(TimeFormat)
	obj := b.survey(s)
	yes := true
	return Batch{
		b.statement(s, Progressed, obj, progress(1), ts),
		b.statement(s, Completed, obj, &Result{Success: &yes, Completion: &yes}, ts),
	}
}

func langTag(lang string) string {
	if lang == "" {
		return "en-US"
	}
	return lang
}
