// Package responses loads raw survey responses and flattens one page of
// answers into keyed values ready for statement building.
package responses

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/remotecontrol"
)

// Source is the subset of the remote-control API the flattener reads.
type Source interface {
	ExportResponsesByToken(ctx context.Context, key string, surveyID int, token, lang string) (map[string]string, error)
	ListGroups(ctx context.Context, key string, surveyID int) ([]remotecontrol.Group, error)
	ListQuestions(ctx context.Context, key string, surveyID, groupID int, lang string) ([]remotecontrol.Question, error)
}

type RowReader interface {
	LatestByToken(ctx context.Context, surveyID, token string) (Row, error)
}

// Answer is one resolved answer. Key is the export column (Q1 or Q1[SQ001]);
// Path is the slash form used in activity ids (Q1 or Q1/SQ001).
type Answer struct {
	Key        string
	Path       string
	QuestionID int
	Value      string
}

type Page struct {
	Answers    []Answer
	LastPage   int
	TotalPages int
	Row        Row
}

// Progress is LastPage/TotalPages, clamped to [0,1].
func (p Page) Progress() float64 {
	if p.TotalPages <= 0 || p.LastPage <= 0 {
		return 0
	}
	if p.LastPage >= p.TotalPages {
		return 1
	}
	return float64(p.LastPage) / float64(p.TotalPages)
}

func (p Page) IsLast() bool { return p.TotalPages > 0 && p.LastPage >= p.TotalPages }

type Flattener struct {
	Rows   RowReader
	Source Source
	Log    logrus.FieldLogger
}

func NewFlattener(rows RowReader, src Source, log logrus.FieldLogger) *Flattener {
	return &Flattener{Rows: rows, Source: src, Log: log}
}

// Flatten resolves the answers on page lastPage for token using an open
// remote-control session key. lastPage 0 means "read it from the row".
func (f *Flattener) Flatten(ctx context.Context, key, surveyID, token, lang string, lastPage int) (Page, error) {
	sid, err := strconv.Atoi(surveyID)
	if err != nil {
		return Page{}, fmt.Errorf("flatten: survey id %q: %w", surveyID, err)
	}
	log := f.Log.WithFields(logrus.Fields{"survey_id": surveyID})

	row, err := f.Rows.LatestByToken(ctx, surveyID, token)
	if err != nil {
		return Page{}, fmt.Errorf("flatten: response row: %w", err)
	}
	if lastPage == 0 {
		lastPage, _ = strconv.Atoi(row["lastpage"])
	}
	page := Page{LastPage: lastPage, Row: row}

	export, err := f.Source.ExportResponsesByToken(ctx, key, sid, token, lang)
	if err != nil {
		return page, fmt.Errorf("flatten: export: %w", err)
	}
	groups, err := f.Source.ListGroups(ctx, key, sid)
	if err != nil {
		return page, fmt.Errorf("flatten: groups: %w", err)
	}
	page.TotalPages = len(groups)

	group, ok := groupForPage(groups, lastPage)
	if !ok {
		log.WithField("last_page", lastPage).Warn("no question group for page")
		return page, nil
	}
	questions, err := f.Source.ListQuestions(ctx, key, sid, group.ID, lang)
	if err != nil {
		return page, fmt.Errorf("flatten: questions: %w", err)
	}

	for _, a := range resolve(questions) {
		v, ok := export[a.Key]
		if !ok {
			log.WithField("key", a.Key).Warn("answer not in export, skipped")
			continue
		}
		a.Value = v
		page.Answers = append(page.Answers, a)
	}
	return page, nil
}

// groupForPage matches the group's display order, falling back to its
// position for surveys whose orders start at 0.
func groupForPage(groups []remotecontrol.Group, page int) (remotecontrol.Group, bool) {
	for _, g := range groups {
		if g.Order == page {
			return g, true
		}
	}
	if page >= 1 && page <= len(groups) {
		return groups[page-1], true
	}
	return remotecontrol.Group{}, false
}

// resolve computes answer keys in question order. Multi parents produce no
// key of their own; their sub-questions become Parent[Child].
func resolve(questions []remotecontrol.Question) []Answer {
	parents := map[int]remotecontrol.Question{}
	for _, q := range questions {
		if q.ParentID == 0 && IsMulti(q) {
			parents[q.ID] = q
		}
	}
	var out []Answer
	for _, q := range questions {
		if _, isParent := parents[q.ID]; isParent {
			continue
		}
		if p, ok := parents[q.ParentID]; ok {
			out = append(out, Answer{Key: p.Title + "[" + q.Title + "]", Path: p.Title + "/" + q.Title, QuestionID: q.ID})
			continue
		}
		out = append(out, Answer{Key: q.Title, Path: q.Title, QuestionID: q.ID})
	}
	return out
}

// multiTypes are question type codes that carry sub-questions.
var multiTypes = map[string]bool{
	"A": true, "B": true, "C": true, "E": true, "F": true, "H": true,
	"K": true, "M": true, "P": true, "Q": true, ":": true, ";": true, "1": true,
}

// IsMulti reports whether q is an array or multiple-answer question.
func IsMulti(q remotecontrol.Question) bool {
	if t := strings.ToLower(q.Theme); t != "" {
		return strings.Contains(t, "array") || strings.Contains(t, "multiple")
	}
	return multiTypes[q.Type]
}
