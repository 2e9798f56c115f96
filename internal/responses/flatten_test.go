package responses

import (
	"context"
	"testing"

	"github.com/mind-engage/xapi-tracker/internal/logging"
	"github.com/mind-engage/xapi-tracker/internal/remotecontrol"
)

type fakeRows struct{ row Row }

func (f fakeRows) LatestByToken(context.Context, string, string) (Row, error) { return f.row, nil }

type fakeSource struct {
	export    map[string]string
	groups    []remotecontrol.Group
	questions map[int][]remotecontrol.Question
	asked     []int
}

func (f *fakeSource) ExportResponsesByToken(context.Context, string, int, string, string) (map[string]string, error) {
	return f.export, nil
}

func (f *fakeSource) ListGroups(context.Context, string, int) ([]remotecontrol.Group, error) {
	return f.groups, nil
}

func (f *fakeSource) ListQuestions(_ context.Context, _ string, _ int, gid int, _ string) ([]remotecontrol.Question, error) {
	f.asked = append(f.asked, gid)
	return f.questions[gid], nil
}

func fourPageSurvey() *fakeSource {
	return &fakeSource{
		export: map[string]string{"Q1[SQ001]": "A1", "Q1[SQ002]": "A2", "Q2": "yes"},
		groups: []remotecontrol.Group{{ID: 10, Order: 1}, {ID: 20, Order: 2}, {ID: 30, Order: 3}, {ID: 40, Order: 4}},
		questions: map[int][]remotecontrol.Question{
			20: {
				{ID: 100, Title: "Q1", Type: "F", Theme: "arrays/array"},
				{ID: 101, ParentID: 100, Title: "SQ001"},
				{ID: 102, ParentID: 100, Title: "SQ002"},
				{ID: 200, Title: "Q2", Type: "Y"},
				{ID: 300, Title: "Q3", Type: "T"},
			},
		},
	}
}

func TestFlattenComposesMultiTitles(t *testing.T) {
	src := fourPageSurvey()
	f := NewFlattener(fakeRows{row: Row{"id": "9", "lastpage": "2"}}, src, logging.Discard())

	page, err := f.Flatten(context.Background(), "sess", "123456", "tok", "en", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(src.asked) != 1 || src.asked[0] != 20 {
		t.Fatalf("questions requested for groups %v", src.asked)
	}
	want := []Answer{
		{Key: "Q1[SQ001]", Path: "Q1/SQ001", QuestionID: 101, Value: "A1"},
		{Key: "Q1[SQ002]", Path: "Q1/SQ002", QuestionID: 102, Value: "A2"},
		{Key: "Q2", Path: "Q2", QuestionID: 200, Value: "yes"},
	}
	if len(page.Answers) != len(want) {
		t.Fatalf("answers = %+v", page.Answers)
	}
	for i := range want {
		if page.Answers[i] != want[i] {
			t.Errorf("answer %d = %+v, want %+v", i, page.Answers[i], want[i])
		}
	}
	if page.LastPage != 2 || page.TotalPages != 4 || page.Progress() != 0.5 || page.IsLast() {
		t.Fatalf("page = %d/%d progress %v", page.LastPage, page.TotalPages, page.Progress())
	}
}

func TestFlattenLastPage(t *testing.T) {
	f := NewFlattener(fakeRows{row: Row{"lastpage": "1"}}, fourPageSurvey(), logging.Discard())
	page, err := f.Flatten(context.Background(), "sess", "123456", "tok", "en", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !page.IsLast() || page.Progress() != 1 || len(page.Answers) != 0 {
		t.Fatalf("page = %+v", page)
	}
}

func TestIsMulti(t *testing.T) {
	cases := []struct {
		q    remotecontrol.Question
		want bool
	}{
		{remotecontrol.Question{Theme: "arrays/array"}, true},
		{remotecontrol.Question{Theme: "multiplechoice", Type: "M"}, true},
		{remotecontrol.Question{Theme: "longfreetext", Type: "F"}, false},
		{remotecontrol.Question{Type: "M"}, true},
		{remotecontrol.Question{Type: "T"}, false},
	}
	for _, c := range cases {
		if got := IsMulti(c.q); got != c.want {
			t.Errorf("IsMulti(%+v) = %v", c.q, got)
		}
	}
}

func TestResolveFollowsDisplayOrder(t *testing.T) {
	qs := []remotecontrol.Question{
		{ID: 1, Title: "Q1", Type: "F", Order: 1},
		{ID: 11, ParentID: 1, Title: "SQ001", Order: 1},
		{ID: 12, ParentID: 1, Title: "SQ002", Order: 2},
		{ID: 2, Title: "Q2", Type: "T", Order: 2},
		{ID: 3, Title: "Q3", Type: "F", Order: 3},
		{ID: 31, ParentID: 3, Title: "SQ001", Order: 1},
	}
	want := []string{"Q1[SQ001]", "Q1[SQ002]", "Q2", "Q3[SQ001]"}
	got := resolve(qs)
	if len(got) != len(want) {
		t.Fatalf("answers = %+v", got)
	}
	for i, k := range want {
		if got[i].Key != k {
			t.Fatalf("answer %d = %q, want %q", i, got[i].Key, k)
		}
	}
}
